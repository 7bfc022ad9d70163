package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	MongoDB         Category = "MongoDB"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	WebSocket       Category = "WebSocket"
	Room            Category = "Room"
	Retention       Category = "Retention"
	Auth            Category = "Auth"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// WebSocket
	Upgrade    SubCategory = "Upgrade"
	Connection SubCategory = "Connection"
	Dispatch   SubCategory = "Dispatch"

	// Room
	Create   SubCategory = "Create"
	Join     SubCategory = "Join"
	Leave    SubCategory = "Leave"
	Kick     SubCategory = "Kick"
	Transfer SubCategory = "Transfer"
	Relay    SubCategory = "Relay"
	Teardown SubCategory = "Teardown"

	// Storage and messaging
	Persist SubCategory = "Persist"
	Load    SubCategory = "Load"
	Trim    SubCategory = "Trim"
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"

	// Auth
	Token SubCategory = "Token"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
	RoomRef      ExtraKey = "RoomRef"
	ConnectionID ExtraKey = "ConnectionId"
	Username     ExtraKey = "Username"
	EventType    ExtraKey = "EventType"
	Count        ExtraKey = "Count"
	Reason       ExtraKey = "Reason"
)
