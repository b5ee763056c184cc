package busserver

// Object names mirror the three D-Bus object paths of the original
// interface split, adapted to the {object}.{method} shape used by the
// line-delimited JSON-RPC-style bus protocol.
const (
	ObjectChat    = "com.redhat.lightspeed.chat"
	ObjectHistory = "com.redhat.lightspeed.history"
	ObjectUser    = "com.redhat.lightspeed.user"
)

const (
	MethodGetAllChatFromUser   = "GetAllChatFromUser"
	MethodDeleteAllChatForUser = "DeleteAllChatForUser"
	MethodDeleteChatForUser    = "DeleteChatForUser"
	MethodGetLatestChatFromUser = "GetLatestChatFromUser"
	MethodGetChatId            = "GetChatId"
	MethodCreateChat            = "CreateChat"
	MethodAskQuestion           = "AskQuestion"

	MethodGetHistory             = "GetHistory"
	MethodGetFirstConversation   = "GetFirstConversation"
	MethodGetLastConversation    = "GetLastConversation"
	MethodGetFilteredConversation = "GetFilteredConversation"
	MethodClearHistory           = "ClearHistory"
	MethodWriteHistory           = "WriteHistory"

	MethodGetUserId = "GetUserId"

	// MethodIsAllowed is the no-auth liveness probe shared by the chat and
	// history objects; it always returns true.
	MethodIsAllowed = "IsAllowed"
)
