package authsdk

import (
	"context"
	"net/http"
)

// Bootstrap creates the first administrator of an empty directory.
func (c *SDKClient) Bootstrap(
	ctx context.Context,
	token string,
	req BootstrapRequest,
) (*BootstrapResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/bootstrap", req, map[string]string{
		"X-Bootstrap-Token": token,
	})
	if err != nil {
		return nil, err
	}

	var bootstrapResp BootstrapResponse
	if err := decodeJSON(resp, &bootstrapResp, http.StatusCreated); err != nil {
		return nil, err
	}

	return &bootstrapResp, nil
}
