package lambda

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Region  string
	Role    string
	Runtime string
	Handler string
	Stage   string
	// AuthorizerFunction is the shared Lambda validating access tokens.
	AuthorizerFunction string
	FrameworkURL       string
	VolumeRoot         string
	HTTPClient         *http.Client
	// CallTimeout bounds every Lambda and API Gateway call. Zero leaves the SDK defaults.
	CallTimeout time.Duration
	// StatementID returns a fresh permission statement id. Defaults to a UUID.
	StatementID func() string
}

// Deployer serves deployments as Lambda functions behind one shared API
// Gateway REST API. Every provisioning step is recorded in the deployment
// state blob, so a failed Deploy resumes where it stopped.
type Deployer struct {
	lambda   LambdaAPI
	apigw    GatewayAPI
	saver    spawner.DeploymentStateSaver
	gateways GatewayStore
	opts     Options

	gwLock sync.Mutex
	gw     *workspace.GatewayInfrastructure
}

var _ spawner.Deployer = &Deployer{}

func NewDeployer(lambdaAPI LambdaAPI, gatewayAPI GatewayAPI, saver spawner.DeploymentStateSaver, gateways GatewayStore, opts Options) *Deployer {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: time.Minute}
	}
	if opts.StatementID == nil {
		opts.StatementID = func() string { return uuid.New().String() }
	}
	return &Deployer{
		lambda:   lambdaAPI,
		apigw:    gatewayAPI,
		saver:    saver,
		gateways: gateways,
		opts:     opts,
	}
}

func (d *Deployer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.opts.CallTimeout)
}

func (d *Deployer) Deploy(ctx context.Context, dep *workspace.Deployment) error {
	if dep.Endpoint() != "" {
		return d.updateCode(ctx, dep)
	}

	if !dep.State.Has(workspace.KeyFunctionArn) {
		arn, err := d.createFunction(ctx, dep)
		if err != nil {
			return err
		}
		err = d.record(ctx, dep, workspace.KeyFunctionArn, arn)
		if err != nil {
			return err
		}
	}
	functionArn := dep.State.GetString(workspace.KeyFunctionArn)

	gw, err := d.gateway(ctx)
	if err != nil {
		return err
	}

	if !dep.State.Has(workspace.KeyResourceID) {
		callCtx, cancel := d.callContext(ctx)
		out, err := d.apigw.CreateResource(callCtx, &apigateway.CreateResourceInput{
			RestApiId: aws.String(gw.RestAPIID),
			ParentId:  aws.String(gw.RootResourceID),
			PathPart:  aws.String(dep.ID),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("creating resource for deployment %s: %w", dep.ID, err)
		}
		err = d.record(ctx, dep, workspace.KeyResourceID, aws.ToString(out.Id))
		if err != nil {
			return err
		}
	}
	resourceID := dep.State.GetString(workspace.KeyResourceID)

	if !dep.State.Has(workspace.KeyMethod) {
		callCtx, cancel := d.callContext(ctx)
		out, err := d.apigw.PutMethod(callCtx, &apigateway.PutMethodInput{
			RestApiId:         aws.String(gw.RestAPIID),
			ResourceId:        aws.String(resourceID),
			HttpMethod:        aws.String(http.MethodGet),
			AuthorizationType: aws.String("CUSTOM"),
			AuthorizerId:      aws.String(gw.AuthorizerID),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("creating method for deployment %s: %w", dep.ID, err)
		}
		err = d.record(ctx, dep, workspace.KeyMethod, aws.ToString(out.HttpMethod))
		if err != nil {
			return err
		}
	}

	if !dep.State.Has(workspace.KeyIntegration) {
		uri := d.invocationURI(functionArn)
		callCtx, cancel := d.callContext(ctx)
		_, err := d.apigw.PutIntegration(callCtx, &apigateway.PutIntegrationInput{
			RestApiId:             aws.String(gw.RestAPIID),
			ResourceId:            aws.String(resourceID),
			HttpMethod:            aws.String(http.MethodGet),
			Type:                  gwtypes.IntegrationTypeAwsProxy,
			IntegrationHttpMethod: aws.String(http.MethodPost),
			Uri:                   aws.String(uri),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("creating integration for deployment %s: %w", dep.ID, err)
		}
		err = d.record(ctx, dep, workspace.KeyIntegration, uri)
		if err != nil {
			return err
		}
	}

	if !dep.State.Has(workspace.KeyPermissionStatement) {
		statement := d.opts.StatementID()
		callCtx, cancel := d.callContext(ctx)
		_, err := d.lambda.AddPermission(callCtx, &lambda.AddPermissionInput{
			FunctionName: aws.String(functionArn),
			StatementId:  aws.String(statement),
			Action:       aws.String("lambda:InvokeFunction"),
			Principal:    aws.String("apigateway.amazonaws.com"),
			SourceArn:    aws.String(d.sourceArn(functionArn, gw.RestAPIID, dep.ID)),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("granting gateway access to deployment %s: %w", dep.ID, err)
		}
		err = d.record(ctx, dep, workspace.KeyPermissionStatement, statement)
		if err != nil {
			return err
		}
	}

	if !dep.State.Has(workspace.KeyGatewayDeploymentID) {
		callCtx, cancel := d.callContext(ctx)
		out, err := d.apigw.CreateDeployment(callCtx, &apigateway.CreateDeploymentInput{
			RestApiId: aws.String(gw.RestAPIID),
			StageName: aws.String(d.opts.Stage),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("deploying stage %s for deployment %s: %w", d.opts.Stage, dep.ID, err)
		}
		err = d.record(ctx, dep, workspace.KeyGatewayDeploymentID, aws.ToString(out.Id))
		if err != nil {
			return err
		}
	}

	endpoint := fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s/%s?access_token=%s",
		gw.RestAPIID, d.opts.Region, d.opts.Stage, dep.ID, dep.AccessToken)
	logger(dep).Info().Msgf("Deployment available at %s", strings.SplitN(endpoint, "?", 2)[0])
	return d.record(ctx, dep, workspace.KeyEndpoint, endpoint)
}

// Delete removes whatever Deploy managed to provision.
func (d *Deployer) Delete(ctx context.Context, dep *workspace.Deployment) error {
	changed := false
	if arn := dep.State.GetString(workspace.KeyFunctionArn); arn != "" {
		callCtx, cancel := d.callContext(ctx)
		_, err := d.lambda.DeleteFunction(callCtx, &lambda.DeleteFunctionInput{FunctionName: aws.String(arn)})
		cancel()
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("deleting function %s: %w", arn, err)
		}
		changed = true
	}
	if resourceID := dep.State.GetString(workspace.KeyResourceID); resourceID != "" {
		gw, err := d.gateway(ctx)
		if err != nil {
			return err
		}
		callCtx, cancel := d.callContext(ctx)
		_, err = d.apigw.DeleteResource(callCtx, &apigateway.DeleteResourceInput{
			RestApiId:  aws.String(gw.RestAPIID),
			ResourceId: aws.String(resourceID),
		})
		cancel()
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("deleting resource %s: %w", resourceID, err)
		}
		changed = true
	}
	if !changed {
		return nil
	}

	dep.State.Delete(
		workspace.KeyFunctionArn,
		workspace.KeyResourceID,
		workspace.KeyMethod,
		workspace.KeyIntegration,
		workspace.KeyPermissionStatement,
		workspace.KeyGatewayDeploymentID,
		workspace.KeyEndpoint,
	)
	logger(dep).Info().Msg("Deleted deployment")
	return d.saver.SaveDeploymentState(ctx, dep)
}

func (d *Deployer) createFunction(ctx context.Context, dep *workspace.Deployment) (string, error) {
	pkg, err := d.PreparePackage(ctx, dep)
	if err != nil {
		return "", err
	}
	runtime := dep.Runtime
	if runtime == "" {
		runtime = d.opts.Runtime
	}
	handler := dep.Handler
	if handler == "" {
		handler = d.opts.Handler
	}

	callCtx, cancel := d.callContext(ctx)
	out, err := d.lambda.CreateFunction(callCtx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(dep.ID),
		Role:         aws.String(d.opts.Role),
		Runtime:      lambdatypes.Runtime(runtime),
		Handler:      aws.String(handler),
		Code:         &lambdatypes.FunctionCode{ZipFile: pkg},
		Environment:  &lambdatypes.Environment{Variables: dep.EnvVars},
	})
	cancel()
	if err != nil {
		return "", fmt.Errorf("creating function for deployment %s: %w", dep.ID, err)
	}
	return aws.ToString(out.FunctionArn), nil
}

func (d *Deployer) updateCode(ctx context.Context, dep *workspace.Deployment) error {
	pkg, err := d.PreparePackage(ctx, dep)
	if err != nil {
		return err
	}
	callCtx, cancel := d.callContext(ctx)
	_, err = d.lambda.UpdateFunctionCode(callCtx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(dep.State.GetString(workspace.KeyFunctionArn)),
		ZipFile:      pkg,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("updating function code for deployment %s: %w", dep.ID, err)
	}
	logger(dep).Info().Msg("Updated function code")
	return nil
}

func (d *Deployer) record(ctx context.Context, dep *workspace.Deployment, key, value string) error {
	dep.State[key] = value
	return d.saver.SaveDeploymentState(ctx, dep)
}

// sourceArn scopes the invoke permission to GET requests on the deployment path.
// The account id is taken from the function arn.
func (d *Deployer) sourceArn(functionArn, restAPIID, deploymentID string) string {
	account := "*"
	parts := strings.Split(functionArn, ":")
	if len(parts) > 4 && parts[4] != "" {
		account = parts[4]
	}
	return fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/*/GET/%s", d.opts.Region, account, restAPIID, deploymentID)
}

func logger(dep *workspace.Deployment) *zerolog.Logger {
	l := log.With().Str("deployment_id", dep.ID).Str("backend", "lambda").Logger()
	return &l
}
