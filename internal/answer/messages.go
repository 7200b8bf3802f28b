package answer

// Fixed user-facing texts.
const (
	MsgTooLong            = "Sorry, your message is too long.\nPlease send a message shorter than 255 characters"
	MsgNudge              = "\n\nMaybe you have a question about course materials?"
	MsgNotFound           = "Sorry, I could not find an answer either in course materials or in open sources.\nTry rephrasing your question"
	MsgNothingInMaterials = "Unfortunately, I found nothing on your question in course materials.\n\nHere is an answer based on publicly available information:"
	MsgLocationHeader     = "\n\nLocation of the information in course materials:\n"
	MsgLinksLeadIn        = "\nHere are some links to external sources in case you want to study the topic in more depth:\n"
	MsgUnavailable        = "Sorry, I cannot process your request right now.\nTry again in a few minutes"
	MsgTextOnly           = "Sorry, I only understand text"
)
