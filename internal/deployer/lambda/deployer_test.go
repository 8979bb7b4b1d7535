package lambda

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner/test_helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeployer(t *testing.T, api *fakeAWS, gateways *memoryGateways, store *test_helpers.MemoryStore) *Deployer {
	return NewDeployer(api, api, store, gateways, Options{
		Region:             "us-east-1",
		Role:               "arn:aws:iam::123456789012:role/deployments",
		Runtime:            "python3.9",
		Handler:            "handler.main",
		Stage:              "prod",
		AuthorizerFunction: "deploymentAuthorizer",
		VolumeRoot:         t.TempDir(),
		StatementID:        func() string { return "statement-1" },
	})
}

func newDeployment(store *test_helpers.MemoryStore) *workspace.Deployment {
	d := workspace.NewDeployment("api", "alice", "proj1")
	store.PutDeployment(d)
	return d
}

func TestDeployFirstTime(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	api.addAPI("old", 1, true)
	api.addAPI("api3", 3, true)
	gateways := &memoryGateways{}
	store := test_helpers.NewMemoryStore()
	dep := newDeployment(store)
	d := testDeployer(t, api, gateways, store)

	require.NoError(t, d.Deploy(ctx, dep))

	assert.Equal(t, "https://api3.execute-api.us-east-1.amazonaws.com/prod/"+dep.ID+"?access_token="+dep.AccessToken, dep.Endpoint())
	var st workspace.LambdaState
	require.NoError(t, workspace.DecodeState(dep.State, &st))
	assert.Equal(t, "arn:aws:lambda:us-east-1:123456789012:function:"+dep.ID, st.FunctionArn)
	assert.Equal(t, "res-"+dep.ID, st.ResourceID)
	assert.Equal(t, "GET", st.Method)
	assert.Equal(t, "arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/"+st.FunctionArn+"/invocations", st.Integration)
	assert.Equal(t, "statement-1", st.PermissionStatement)
	assert.Equal(t, "stage-deploy-1", st.GatewayDeploymentID)

	require.Len(t, api.permissions, 1)
	assert.Equal(t, "arn:aws:execute-api:us-east-1:123456789012:api3/*/GET/"+dep.ID, *api.permissions[0].SourceArn)

	// Every step is persisted on its own
	assert.Equal(t, 7, store.Saves)
	saved, err := store.GetDeployment(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, dep.Endpoint(), saved.Endpoint())

	require.NotNil(t, gateways.gw)
	assert.Equal(t, workspace.GatewayInfrastructure{
		Index:          3,
		RestAPIID:      "api3",
		AuthorizerID:   "auth-api3",
		RootResourceID: "root-api3",
	}, *gateways.gw)
	assert.Zero(t, api.count("CreateRestApi"))
	assert.Zero(t, api.count("CreateAuthorizer"))
}

func TestRedeployUpdatesCodeOnly(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	store := test_helpers.NewMemoryStore()
	dep := newDeployment(store)
	d := testDeployer(t, api, &memoryGateways{}, store)

	require.NoError(t, d.Deploy(ctx, dep))
	endpoint := dep.Endpoint()
	calls := len(api.calls)

	require.NoError(t, d.Deploy(ctx, dep))
	assert.Equal(t, []string{"UpdateFunctionCode"}, api.calls[calls:])
	assert.Equal(t, 1, api.count("CreateFunction"))
	assert.Equal(t, endpoint, dep.Endpoint())
	assert.Equal(t, dep.State.GetString(workspace.KeyFunctionArn), *api.updatedCode[0].FunctionName)
}

func TestDeployResumesAfterFailure(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	api.failOnce["PutIntegration"] = true
	store := test_helpers.NewMemoryStore()
	dep := newDeployment(store)
	d := testDeployer(t, api, &memoryGateways{}, store)

	err := d.Deploy(ctx, dep)
	require.Error(t, err)
	assert.True(t, dep.State.Has(workspace.KeyFunctionArn))
	assert.True(t, dep.State.Has(workspace.KeyResourceID))
	assert.True(t, dep.State.Has(workspace.KeyMethod))
	assert.False(t, dep.State.Has(workspace.KeyIntegration))
	assert.Empty(t, dep.Endpoint())

	// The partial progress survives a reload
	reloaded, err := store.GetDeployment(ctx, dep.ID)
	require.NoError(t, err)
	require.NoError(t, d.Deploy(ctx, reloaded))

	assert.NotEmpty(t, reloaded.Endpoint())
	assert.Equal(t, 1, api.count("CreateFunction"))
	assert.Equal(t, 1, api.count("CreateResource"))
	assert.Equal(t, 1, api.count("PutMethod"))
	assert.Equal(t, 2, api.count("PutIntegration"))
	assert.Equal(t, 1, api.count("AddPermission"))
}

func TestGatewayBootstrap(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	gateways := &memoryGateways{}
	store := test_helpers.NewMemoryStore()
	d := testDeployer(t, api, gateways, store)

	require.NoError(t, d.Deploy(ctx, newDeployment(store)))

	assert.Equal(t, 1, api.count("CreateRestApi"))
	require.Len(t, api.createdAuth, 1)
	assert.Equal(t, "deploymentAuthorizer-1", *api.createdAuth[0].Name)
	assert.Equal(t, "method.request.querystring.access_token", *api.createdAuth[0].IdentitySource)
	assert.Equal(t, "arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/arn:aws:lambda:us-east-1:123456789012:function:deploymentAuthorizer/invocations", *api.createdAuth[0].AuthorizerUri)
	assert.Equal(t, "deploymentApi-1", *api.apis[0].Name)
	assert.Equal(t, 1, gateways.gw.Index)

	// A second deployment uses the cached ids
	require.NoError(t, d.Deploy(ctx, newDeployment(store)))
	assert.Equal(t, 1, api.count("GetRestApis"))
}

func TestGatewayFromStore(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	gateways := &memoryGateways{gw: &workspace.GatewayInfrastructure{
		Index:          7,
		RestAPIID:      "stored",
		AuthorizerID:   "auth-stored",
		RootResourceID: "root-stored",
	}}
	store := test_helpers.NewMemoryStore()
	dep := newDeployment(store)
	d := testDeployer(t, api, gateways, store)

	require.NoError(t, d.Deploy(ctx, dep))
	assert.Zero(t, api.count("GetRestApis"))
	assert.Zero(t, gateways.saves)
	assert.Contains(t, dep.Endpoint(), "https://stored.execute-api.")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	store := test_helpers.NewMemoryStore()
	d := testDeployer(t, api, &memoryGateways{}, store)

	// Nothing provisioned
	fresh := newDeployment(store)
	require.NoError(t, d.Delete(ctx, fresh))
	assert.Empty(t, api.calls)

	dep := newDeployment(store)
	require.NoError(t, d.Deploy(ctx, dep))
	require.NoError(t, d.Delete(ctx, dep))
	assert.Equal(t, 1, api.count("DeleteFunction"))
	assert.Equal(t, 1, api.count("DeleteResource"))
	assert.Empty(t, dep.State)
	assert.Empty(t, api.resources)

	// A resource removed out of band is tolerated
	dep.State[workspace.KeyResourceID] = "res-gone"
	require.NoError(t, d.Delete(ctx, dep))
	assert.False(t, dep.State.Has(workspace.KeyResourceID))
}

func TestCallTimeout(t *testing.T) {
	ctx := context.Background()
	api := newFakeAWS()
	store := test_helpers.NewMemoryStore()
	d := testDeployer(t, api, &memoryGateways{}, store)
	d.opts.CallTimeout = time.Minute

	dep := newDeployment(store)
	require.NoError(t, d.Deploy(ctx, dep))
	require.NoError(t, d.Delete(ctx, dep))
	assert.NotEmpty(t, api.calls)
	assert.Empty(t, api.undeadlined)

	// Without a timeout the caller's context passes through
	api = newFakeAWS()
	d = testDeployer(t, api, &memoryGateways{}, store)
	require.NoError(t, d.Deploy(ctx, newDeployment(store)))
	assert.Equal(t, api.calls, api.undeadlined)
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zipEntries(t *testing.T, raw []byte) map[string]string {
	r, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = buf.String()
	}
	return out
}

func TestPreparePackage(t *testing.T) {
	framework := zipBytes(t, map[string]string{"framework/app.py": "app"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(framework)
	}))
	defer server.Close()

	root := t.TempDir()
	volume := filepath.Join(root, "alice", "proj1")
	require.NoError(t, os.MkdirAll(filepath.Join(volume, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(volume, "handler.py"), []byte("handler"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(volume, "sub", "util.py"), []byte("util"), 0644))

	d := NewDeployer(newFakeAWS(), newFakeAWS(), nil, nil, Options{
		FrameworkURL: server.URL,
		VolumeRoot:   root,
	})
	dep := workspace.NewDeployment("api", "alice", "proj1")
	dep.Files = []string{"handler.py", "sub/util.py"}

	pkg, err := d.PreparePackage(context.Background(), dep)
	require.NoError(t, err)

	entries := zipEntries(t, pkg)
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"framework/app.py", "handler.py", "util.py"}, names)
	assert.Equal(t, "util", entries["util.py"])
	assert.Equal(t, "app", entries["framework/app.py"])
}

func TestPreparePackageRejectsTraversal(t *testing.T) {
	d := NewDeployer(newFakeAWS(), newFakeAWS(), nil, nil, Options{VolumeRoot: t.TempDir()})

	for _, file := range []string{"../other/secret.py", "/etc/passwd", "sub/../../escape.py"} {
		dep := workspace.NewDeployment("api", "alice", "proj1")
		dep.Files = []string{file}
		_, err := d.PreparePackage(context.Background(), dep)
		assert.ErrorIs(t, err, ErrUnsafePath, file)
	}
}

func TestPreparePackageFrameworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDeployer(newFakeAWS(), newFakeAWS(), nil, nil, Options{FrameworkURL: server.URL, VolumeRoot: t.TempDir()})
	_, err := d.PreparePackage(context.Background(), workspace.NewDeployment("api", "alice", "proj1"))
	assert.Error(t, err)
}
