package event

// Event types known to the read side. The set is closed but extensible:
// adding one is a registry entry in dispatch.Default, nothing more. Running
// gateways silently ignore types they do not know.
const (
	EmailShared                     = "email:shared"
	EmailDelivered                  = "email:delivered"
	EmailLabelAdded                 = "email:label:added"
	EmailLabelRemoved               = "email:label:removed"
	EmailTaskCreated                = "email:task:created"
	EmailTaskDoneStatusUpdated      = "email:task:done-status:updated"
	EmailUserAdded                  = "email:user:added"
	EmailUserStateSeenUpdated       = "email:user-state:seen:updated"
	ChatStarted                     = "chat:started"
	ChatMessagePosted               = "chat:message:posted"
	ChatMessageLastSeenPointerMoved = "chat-message:last-seen-pointer:updated"
	LabelCreated                    = "label:created"
	AutomationCreated               = "automation:created"
	UserNotificationCreated         = "user:notification:created"
	UserNotificationsSeenUpdated    = "user:notifications:seen:updated"

	// Command-side event names published by core/commands.
	EmailLabelsUpdate       = "email:labels:update"
	EmailLabelAdd           = "email:label:add"
	EmailUserStateSeenWrite = "email:user-state:seen:update"
)
