package workspace

import (
	"encoding/json"
	"fmt"
)

// StateBlob is the backend state of a workspace or deployment, persisted as a JSON object.
type StateBlob map[string]any

func (b StateBlob) Has(key string) bool {
	_, ok := b[key]
	return ok
}

func (b StateBlob) GetString(key string) string {
	v, ok := b[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func (b StateBlob) Delete(keys ...string) {
	for _, k := range keys {
		delete(b, k)
	}
}

func (b StateBlob) Clone() StateBlob {
	c := make(StateBlob, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Keys written by each backend. Only the owning backend reads or writes them.
const (
	KeyContainerID   = "container_id"
	KeyContainerName = "container_name"
	KeyServiceID     = "service_id"
	KeyPorts         = "ports"

	KeyTaskDefinitionArn = "task_definition_arn"
	KeyTaskArn           = "task_arn"
	KeyClusterArn        = "cluster_arn"
	KeyError             = "error"

	KeyFunctionArn         = "function_arn"
	KeyResourceID          = "resource_id"
	KeyMethod              = "method"
	KeyIntegration         = "integration"
	KeyPermissionStatement = "permission_statement"
	KeyGatewayDeploymentID = "gateway_deployment_id"
	KeyEndpoint            = "endpoint"
)

type DockerState struct {
	ContainerID   string            `json:"container_id,omitempty"`
	ContainerName string            `json:"container_name,omitempty"`
	ServiceID     string            `json:"service_id,omitempty"`
	Ports         map[string]string `json:"ports,omitempty"`
}

type ECSState struct {
	TaskDefinitionArn string `json:"task_definition_arn,omitempty"`
	TaskArn           string `json:"task_arn,omitempty"`
	ClusterArn        string `json:"cluster_arn,omitempty"`
	Error             string `json:"error,omitempty"`
}

type LambdaState struct {
	FunctionArn         string `json:"function_arn,omitempty"`
	ResourceID          string `json:"resource_id,omitempty"`
	Method              string `json:"method,omitempty"`
	Integration         string `json:"integration,omitempty"`
	PermissionStatement string `json:"permission_statement,omitempty"`
	GatewayDeploymentID string `json:"gateway_deployment_id,omitempty"`
	Endpoint            string `json:"endpoint,omitempty"`
}

// DecodeState reads the typed view of a blob into v. Keys v does not know are ignored.
func DecodeState(blob StateBlob, v any) error {
	raw, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// EncodeState writes the non-empty fields of v into blob, leaving every other key untouched.
// Clearing a key is done explicitly with StateBlob.Delete.
func EncodeState(v any, blob StateBlob) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	err = json.Unmarshal(raw, &fields)
	if err != nil {
		return err
	}
	for k, val := range fields {
		blob[k] = val
	}
	return nil
}
