package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	types "github.com/eagraf/habitat-workspaces/core/api"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/constants"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var host string

func printResponse(res *http.Response) error {
	defer res.Body.Close()
	slurp, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s\nResponse: %s\n", res.Status, string(slurp))
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed with %s", res.Status)
	}
	return nil
}

func endpoint(format string, args ...any) string {
	return strings.TrimSuffix(host, "/") + fmt.Sprintf(format, args...)
}

func post(url string, body any) error {
	var reader io.Reader
	if body != nil {
		marshalled, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(marshalled)
	}
	res, err := http.Post(url, "application/json", reader)
	if err != nil {
		return err
	}
	return printResponse(res)
}

func get(url string) error {
	res, err := http.Get(url)
	if err != nil {
		return err
	}
	return printResponse(res)
}

func del(url string) error {
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	return printResponse(res)
}

func createWorkspace() *cobra.Command {
	var req types.PostWorkspaceRequest
	var serverType string
	var env []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace without starting it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Config.Type = workspace.ServerType(serverType)
			req.EnvVars = make(map[string]string)
			for _, kv := range env {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("environment variable %q is not KEY=VALUE", kv)
				}
				req.EnvVars[key] = value
			}
			return post(endpoint("/workspaces"), &req)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name of the workspace.")
	cmd.Flags().StringVar(&req.Owner, "owner", "", "Namespace owning the workspace.")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project whose files are mounted into the workspace.")
	cmd.Flags().StringVar(&req.Image, "image", "", "Container image to run.")
	cmd.Flags().StringVar(&serverType, "type", string(workspace.TypeJupyter), "Server type: jupyter, restful, cron, proxy, rstudio or custom.")
	cmd.Flags().StringVar(&req.Config.Command, "command", "", "Command line for custom workspaces.")
	cmd.Flags().StringVar(&req.Config.Function, "function", "", "Function served by restful and cron workspaces.")
	cmd.Flags().StringVar(&req.Config.Script, "script", "", "Script run by restful and cron workspaces.")
	cmd.Flags().StringVar(&req.StartupScript, "startup-script", "", "Project relative script run before the server starts.")
	cmd.Flags().StringSliceVar(&req.Connected, "connect", nil, "IDs of workspaces that must be running first.")
	cmd.Flags().StringArrayVarP(&env, "env", "e", nil, "Environment variable as KEY=VALUE. May be repeated.")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("image")
	return cmd
}

func workspaceAction(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <workspace-id>",
		Short: fmt.Sprintf("Queue a %s of the workspace.", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(endpoint("/workspaces/%s/%s", url.PathEscape(args[0]), action), nil)
		},
	}
}

func getWorkspace() *cobra.Command {
	return &cobra.Command{
		Use:   "get <workspace-id>",
		Short: "Show a workspace record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(endpoint("/workspaces/%s", url.PathEscape(args[0])))
		},
	}
}

func deleteWorkspace() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Terminate and delete a workspace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return del(endpoint("/workspaces/%s", url.PathEscape(args[0])))
		},
	}
}

func listWorkspaces() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active workspaces.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := endpoint("/workspaces")
			if owner != "" {
				u += "?" + url.Values{"owner": {owner}}.Encode()
			}
			return get(u)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Only list workspaces of this owner.")
	return cmd
}

func history() *cobra.Command {
	var version int64
	cmd := &cobra.Command{
		Use:   "history <workspace-id>",
		Short: "Show the state change history of a workspace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := endpoint("/workspaces/%s/history", url.PathEscape(args[0]))
			if cmd.Flags().Changed("version") {
				u += fmt.Sprintf("?version=%d", version)
			}
			return get(u)
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "Show the state as committed at this version instead.")
	return cmd
}

func stats() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <workspace-id>",
		Short: "Show the run intervals of a workspace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(endpoint("/workspaces/%s/stats", url.PathEscape(args[0])))
		},
	}
}

func status() *cobra.Command {
	return &cobra.Command{
		Use:   "status <workspace-id>",
		Short: "Ask the active backend for the workspace status.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(endpoint("/workspaces/%s/status", url.PathEscape(args[0])))
		},
	}
}

func watch() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <workspace-id>",
		Short: "Print status changes of a workspace as they happen.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(endpoint("/workspaces/%s/stream", url.PathEscape(args[0])))
			if err != nil {
				return err
			}
			switch u.Scheme {
			case "https":
				u.Scheme = "wss"
			default:
				u.Scheme = "ws"
			}
			conn, res, err := websocket.DefaultDialer.DialContext(cmd.Context(), u.String(), nil)
			if err != nil {
				if res != nil {
					printResponse(res)
				}
				return err
			}
			defer conn.Close()
			for {
				_, payload, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return err
				}
				fmt.Println(string(payload))
			}
		},
	}
}

func task() *cobra.Command {
	return &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show the progress of a queued task.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(endpoint("/tasks/%s", url.PathEscape(args[0])))
		},
	}
}

func autograde() *cobra.Command {
	var req types.PostAutogradeRequest
	cmd := &cobra.Command{
		Use:   "autograde <workspace-id>",
		Short: "Queue an nbgrader autograde run for one student's submission.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(endpoint("/workspaces/%s/autograde", url.PathEscape(args[0])), &req)
		},
	}
	cmd.Flags().StringVar(&req.Course, "course", "", "Course the assignment belongs to.")
	cmd.Flags().StringVar(&req.Assignment, "assignment", "", "Assignment to grade.")
	cmd.Flags().StringVar(&req.Student, "student", "", "Student whose submission is graded.")
	cmd.MarkFlagRequired("assignment")
	cmd.MarkFlagRequired("student")
	return cmd
}

func deployments() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployment",
		Short: "Manage function deployments.",
	}

	var req types.PostDeploymentRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a deployment record.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return post(endpoint("/deployments"), &req)
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "Display name of the deployment.")
	create.Flags().StringVar(&req.Owner, "owner", "", "Namespace owning the deployment.")
	create.Flags().StringVar(&req.ProjectID, "project", "", "Project holding the deployed files.")
	create.Flags().StringVar(&req.Runtime, "runtime", "", "Lambda runtime. Defaults to the server's configuration.")
	create.Flags().StringVar(&req.Handler, "handler", "", "Lambda handler. Defaults to the server's configuration.")
	create.Flags().StringSliceVar(&req.Files, "file", nil, "Project relative file to package. May be repeated.")
	create.MarkFlagRequired("owner")
	create.MarkFlagRequired("project")
	create.MarkFlagRequired("file")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "get <deployment-id>",
			Short: "Show a deployment and its endpoint.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return get(endpoint("/deployments/%s", url.PathEscape(args[0])))
			},
		},
		&cobra.Command{
			Use:   "deploy <deployment-id>",
			Short: "Queue provisioning or a code update of the deployment.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return post(endpoint("/deployments/%s/deploy", url.PathEscape(args[0])), nil)
			},
		},
		&cobra.Command{
			Use:   "delete <deployment-id>",
			Short: "Queue removal of the deployment's cloud resources.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return del(endpoint("/deployments/%s", url.PathEscape(args[0])))
			},
		},
	)
	return cmd
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wsctl",
		Short:         "CLI interface for the workspace orchestrator API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&host, "host", "H", "http://localhost:"+constants.DefaultPortAPI, "Orchestrator API base URL.")

	root.AddCommand(
		createWorkspace(),
		getWorkspace(),
		listWorkspaces(),
		deleteWorkspace(),
		workspaceAction("start"),
		workspaceAction("stop"),
		workspaceAction("terminate"),
		status(),
		history(),
		stats(),
		watch(),
		task(),
		autograde(),
		deployments(),
	)
	return root
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
