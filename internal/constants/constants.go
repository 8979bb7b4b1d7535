package constants

const (
	DefaultPortAPI      = "8080"
	DefaultAPIVersion   = "v1"
	DefaultGatewayStage = "prod"

	// Container side paths
	ResourcesPath     = "/resources"
	SSHKeyPath        = "/home/jovyan/.ssh"
	StartupScriptPath = "/start.sh"
	RunnerBinary      = "/runner"

	// SNS message types, carried in the x-amz-sns-message-type header
	SNSMessageTypeHeader        = "x-amz-sns-message-type"
	SNSSubscriptionConfirmation = "SubscriptionConfirmation"
	SNSNotification             = "Notification"

	// Label attached to every container and service created by the docker spawner
	WorkspaceLabel = "habitat_workspace_id"
)
