package lambda

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

// fakeAWS records every Lambda and API Gateway call. failOnce makes the named
// operation fail the next time it is called.
type fakeAWS struct {
	mu       sync.Mutex
	calls    []string
	failOnce map[string]bool
	// undeadlined lists calls made with a context that carried no deadline.
	undeadlined []string

	apis        []gwtypes.RestApi
	authorizers map[string][]gwtypes.Authorizer
	functions   map[string]bool
	resources   map[string]bool

	createdFunctions []*lambda.CreateFunctionInput
	updatedCode      []*lambda.UpdateFunctionCodeInput
	permissions      []*lambda.AddPermissionInput
	createdAuth      []*apigateway.CreateAuthorizerInput
}

var (
	_ LambdaAPI  = &fakeAWS{}
	_ GatewayAPI = &fakeAWS{}
)

func newFakeAWS() *fakeAWS {
	return &fakeAWS{
		failOnce:    make(map[string]bool),
		authorizers: make(map[string][]gwtypes.Authorizer),
		functions:   map[string]bool{"deploymentAuthorizer": true},
		resources:   make(map[string]bool),
	}
}

// call records op and reports whether it should fail. Callers hold the lock.
func (f *fakeAWS) call(ctx context.Context, op string) error {
	f.calls = append(f.calls, op)
	if _, ok := ctx.Deadline(); !ok {
		f.undeadlined = append(f.undeadlined, op)
	}
	if f.failOnce[op] {
		delete(f.failOnce, op)
		return fmt.Errorf("%s: throttled", op)
	}
	return nil
}

func (f *fakeAWS) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeAWS) addAPI(id string, n int, authorizer bool) {
	f.apis = append(f.apis, gwtypes.RestApi{Id: aws.String(id), Name: aws.String(fmt.Sprintf("deploymentApi-%d", n))})
	if authorizer {
		f.authorizers[id] = append(f.authorizers[id], gwtypes.Authorizer{
			Id:   aws.String("auth-" + id),
			Name: aws.String(fmt.Sprintf("deploymentAuthorizer-%d", n)),
		})
	}
}

func (f *fakeAWS) CreateFunction(ctx context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "CreateFunction"); err != nil {
		return nil, err
	}
	f.createdFunctions = append(f.createdFunctions, in)
	f.functions[aws.ToString(in.FunctionName)] = true
	return &lambda.CreateFunctionOutput{
		FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:" + aws.ToString(in.FunctionName)),
	}, nil
}

func (f *fakeAWS) UpdateFunctionCode(ctx context.Context, in *lambda.UpdateFunctionCodeInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "UpdateFunctionCode"); err != nil {
		return nil, err
	}
	f.updatedCode = append(f.updatedCode, in)
	return &lambda.UpdateFunctionCodeOutput{}, nil
}

func (f *fakeAWS) DeleteFunction(ctx context.Context, in *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "DeleteFunction"); err != nil {
		return nil, err
	}
	return &lambda.DeleteFunctionOutput{}, nil
}

func (f *fakeAWS) GetFunction(ctx context.Context, in *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "GetFunction"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.FunctionName)
	if !f.functions[name] {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("function not found")}
	}
	return &lambda.GetFunctionOutput{
		Configuration: &lambdatypes.FunctionConfiguration{
			FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:" + name),
		},
	}, nil
}

func (f *fakeAWS) AddPermission(ctx context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "AddPermission"); err != nil {
		return nil, err
	}
	f.permissions = append(f.permissions, in)
	return &lambda.AddPermissionOutput{}, nil
}

func (f *fakeAWS) GetRestApis(ctx context.Context, in *apigateway.GetRestApisInput, _ ...func(*apigateway.Options)) (*apigateway.GetRestApisOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "GetRestApis"); err != nil {
		return nil, err
	}
	return &apigateway.GetRestApisOutput{Items: f.apis}, nil
}

func (f *fakeAWS) CreateRestApi(ctx context.Context, in *apigateway.CreateRestApiInput, _ ...func(*apigateway.Options)) (*apigateway.CreateRestApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "CreateRestApi"); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("api%d", len(f.apis)+1)
	f.apis = append(f.apis, gwtypes.RestApi{Id: aws.String(id), Name: in.Name})
	return &apigateway.CreateRestApiOutput{Id: aws.String(id), Name: in.Name}, nil
}

func (f *fakeAWS) GetAuthorizers(ctx context.Context, in *apigateway.GetAuthorizersInput, _ ...func(*apigateway.Options)) (*apigateway.GetAuthorizersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "GetAuthorizers"); err != nil {
		return nil, err
	}
	return &apigateway.GetAuthorizersOutput{Items: f.authorizers[aws.ToString(in.RestApiId)]}, nil
}

func (f *fakeAWS) CreateAuthorizer(ctx context.Context, in *apigateway.CreateAuthorizerInput, _ ...func(*apigateway.Options)) (*apigateway.CreateAuthorizerOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "CreateAuthorizer"); err != nil {
		return nil, err
	}
	f.createdAuth = append(f.createdAuth, in)
	id := "auth-" + aws.ToString(in.RestApiId)
	f.authorizers[aws.ToString(in.RestApiId)] = append(f.authorizers[aws.ToString(in.RestApiId)], gwtypes.Authorizer{Id: aws.String(id), Name: in.Name})
	return &apigateway.CreateAuthorizerOutput{Id: aws.String(id)}, nil
}

func (f *fakeAWS) GetResources(ctx context.Context, in *apigateway.GetResourcesInput, _ ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "GetResources"); err != nil {
		return nil, err
	}
	return &apigateway.GetResourcesOutput{
		Items: []gwtypes.Resource{{Id: aws.String("root-" + aws.ToString(in.RestApiId)), Path: aws.String("/")}},
	}, nil
}

func (f *fakeAWS) CreateResource(ctx context.Context, in *apigateway.CreateResourceInput, _ ...func(*apigateway.Options)) (*apigateway.CreateResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "CreateResource"); err != nil {
		return nil, err
	}
	id := "res-" + aws.ToString(in.PathPart)
	f.resources[id] = true
	return &apigateway.CreateResourceOutput{Id: aws.String(id)}, nil
}

func (f *fakeAWS) DeleteResource(ctx context.Context, in *apigateway.DeleteResourceInput, _ ...func(*apigateway.Options)) (*apigateway.DeleteResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "DeleteResource"); err != nil {
		return nil, err
	}
	id := aws.ToString(in.ResourceId)
	if !f.resources[id] {
		return nil, &gwtypes.NotFoundException{Message: aws.String("resource not found")}
	}
	delete(f.resources, id)
	return &apigateway.DeleteResourceOutput{}, nil
}

func (f *fakeAWS) PutMethod(ctx context.Context, in *apigateway.PutMethodInput, _ ...func(*apigateway.Options)) (*apigateway.PutMethodOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "PutMethod"); err != nil {
		return nil, err
	}
	return &apigateway.PutMethodOutput{HttpMethod: in.HttpMethod, AuthorizerId: in.AuthorizerId}, nil
}

func (f *fakeAWS) PutIntegration(ctx context.Context, in *apigateway.PutIntegrationInput, _ ...func(*apigateway.Options)) (*apigateway.PutIntegrationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "PutIntegration"); err != nil {
		return nil, err
	}
	return &apigateway.PutIntegrationOutput{Uri: in.Uri, Type: in.Type}, nil
}

func (f *fakeAWS) CreateDeployment(ctx context.Context, in *apigateway.CreateDeploymentInput, _ ...func(*apigateway.Options)) (*apigateway.CreateDeploymentOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(ctx, "CreateDeployment"); err != nil {
		return nil, err
	}
	return &apigateway.CreateDeploymentOutput{Id: aws.String("stage-deploy-1")}, nil
}

type memoryGateways struct {
	gw    *workspace.GatewayInfrastructure
	saves int
}

func (m *memoryGateways) GetGatewayInfrastructure(context.Context) (*workspace.GatewayInfrastructure, error) {
	if m.gw == nil {
		return nil, workspace.ErrGatewayNotFound
	}
	c := *m.gw
	return &c, nil
}

func (m *memoryGateways) SaveGatewayInfrastructure(_ context.Context, gw *workspace.GatewayInfrastructure) error {
	c := *gw
	m.gw = &c
	m.saves++
	return nil
}
