package workspace

import "errors"

var ErrGatewayNotFound = errors.New("gateway infrastructure not recorded")

// GatewayInfrastructure identifies the API Gateway objects shared by every
// deployment: the REST API, its request authorizer and its root resource.
type GatewayInfrastructure struct {
	Index          int    `json:"index"`
	RestAPIID      string `json:"rest_api_id"`
	AuthorizerID   string `json:"authorizer_id"`
	RootResourceID string `json:"root_resource_id"`
}
