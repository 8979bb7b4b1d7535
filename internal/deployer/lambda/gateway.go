package lambda

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/rs/zerolog/log"
)

const (
	apiPrefix        = "deploymentApi-"
	authorizerPrefix = "deploymentAuthorizer-"
	tokenSource      = "method.request.querystring.access_token"
)

var apiName = regexp.MustCompile(`^deploymentApi-(\d+)$`)

// GatewayStore persists the shared gateway ids once they are known.
type GatewayStore interface {
	GetGatewayInfrastructure(ctx context.Context) (*workspace.GatewayInfrastructure, error)
	SaveGatewayInfrastructure(ctx context.Context, gw *workspace.GatewayInfrastructure) error
}

// gateway returns the shared infrastructure, from memory, then the store, and
// only when neither knows it by scanning API Gateway for the naming convention.
func (d *Deployer) gateway(ctx context.Context) (*workspace.GatewayInfrastructure, error) {
	d.gwLock.Lock()
	defer d.gwLock.Unlock()
	if d.gw != nil {
		return d.gw, nil
	}

	gw, err := d.gateways.GetGatewayInfrastructure(ctx)
	if err == nil {
		d.gw = gw
		return gw, nil
	} else if !errors.Is(err, workspace.ErrGatewayNotFound) {
		return nil, err
	}

	gw, err = d.discoverGateway(ctx)
	if err != nil {
		return nil, err
	}
	err = d.gateways.SaveGatewayInfrastructure(ctx, gw)
	if err != nil {
		return nil, err
	}
	d.gw = gw
	return gw, nil
}

func (d *Deployer) discoverGateway(ctx context.Context) (*workspace.GatewayInfrastructure, error) {
	gw := &workspace.GatewayInfrastructure{}

	var position *string
	for {
		callCtx, cancel := d.callContext(ctx)
		out, err := d.apigw.GetRestApis(callCtx, &apigateway.GetRestApisInput{Limit: aws.Int32(500), Position: position})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("listing rest apis: %w", err)
		}
		for _, api := range out.Items {
			m := apiName.FindStringSubmatch(aws.ToString(api.Name))
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n > gw.Index {
				gw.Index = n
				gw.RestAPIID = aws.ToString(api.Id)
			}
		}
		if out.Position == nil || len(out.Items) == 0 {
			break
		}
		position = out.Position
	}

	if gw.RestAPIID == "" {
		gw.Index = 1
		callCtx, cancel := d.callContext(ctx)
		out, err := d.apigw.CreateRestApi(callCtx, &apigateway.CreateRestApiInput{
			Name: aws.String(fmt.Sprintf("%s%d", apiPrefix, gw.Index)),
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("creating rest api: %w", err)
		}
		gw.RestAPIID = aws.ToString(out.Id)
		log.Info().Msgf("Created deployment API %s", gw.RestAPIID)
	}

	authorizerID, err := d.findAuthorizer(ctx, gw)
	if err != nil {
		return nil, err
	}
	if authorizerID == "" {
		authorizerID, err = d.createAuthorizer(ctx, gw)
		if err != nil {
			return nil, err
		}
	}
	gw.AuthorizerID = authorizerID

	callCtx, cancel := d.callContext(ctx)
	resources, err := d.apigw.GetResources(callCtx, &apigateway.GetResourcesInput{RestApiId: aws.String(gw.RestAPIID)})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("listing resources of %s: %w", gw.RestAPIID, err)
	}
	for _, r := range resources.Items {
		if aws.ToString(r.Path) == "/" {
			gw.RootResourceID = aws.ToString(r.Id)
		}
	}
	if gw.RootResourceID == "" {
		return nil, fmt.Errorf("rest api %s has no root resource", gw.RestAPIID)
	}
	return gw, nil
}

func (d *Deployer) findAuthorizer(ctx context.Context, gw *workspace.GatewayInfrastructure) (string, error) {
	callCtx, cancel := d.callContext(ctx)
	out, err := d.apigw.GetAuthorizers(callCtx, &apigateway.GetAuthorizersInput{RestApiId: aws.String(gw.RestAPIID)})
	cancel()
	if err != nil {
		return "", fmt.Errorf("listing authorizers of %s: %w", gw.RestAPIID, err)
	}
	name := fmt.Sprintf("%s%d", authorizerPrefix, gw.Index)
	for _, a := range out.Items {
		if aws.ToString(a.Name) == name {
			return aws.ToString(a.Id), nil
		}
	}
	return "", nil
}

func (d *Deployer) createAuthorizer(ctx context.Context, gw *workspace.GatewayInfrastructure) (string, error) {
	callCtx, cancel := d.callContext(ctx)
	fn, err := d.lambda.GetFunction(callCtx, &lambda.GetFunctionInput{FunctionName: aws.String(d.opts.AuthorizerFunction)})
	cancel()
	if err != nil {
		return "", fmt.Errorf("looking up authorizer function %s: %w", d.opts.AuthorizerFunction, err)
	}
	if fn.Configuration == nil {
		return "", fmt.Errorf("authorizer function %s has no configuration", d.opts.AuthorizerFunction)
	}

	callCtx, cancel = d.callContext(ctx)
	out, err := d.apigw.CreateAuthorizer(callCtx, &apigateway.CreateAuthorizerInput{
		RestApiId:      aws.String(gw.RestAPIID),
		Name:           aws.String(fmt.Sprintf("%s%d", authorizerPrefix, gw.Index)),
		Type:           gwtypes.AuthorizerTypeRequest,
		AuthorizerUri:  aws.String(d.invocationURI(aws.ToString(fn.Configuration.FunctionArn))),
		IdentitySource: aws.String(tokenSource),
	})
	cancel()
	if err != nil {
		return "", fmt.Errorf("creating authorizer: %w", err)
	}
	log.Info().Msgf("Created deployment authorizer %s", aws.ToString(out.Id))
	return aws.ToString(out.Id), nil
}

func (d *Deployer) invocationURI(functionArn string) string {
	return fmt.Sprintf("arn:aws:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations", d.opts.Region, functionArn)
}
