package line

// Message is an outbound message payload. Only text messages with optional
// quick replies are produced by this bot.
type Message struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

type QuickReplyItem struct {
	Type   string `json:"type"`
	Action Action `json:"action"`
}

type Action struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Text        string `json:"text,omitempty"`
	Data        string `json:"data,omitempty"`
	DisplayText string `json:"displayText,omitempty"`
}

// Text creates a plain text message.
func Text(text string) Message {
	return Message{Type: "text", Text: text}
}

// TextWithQuickReplies creates a text message with canned response choices.
func TextWithQuickReplies(text string, items ...QuickReplyItem) Message {
	if len(items) == 0 {
		return Text(text)
	}
	return Message{
		Type:       "text",
		Text:       text,
		QuickReply: &QuickReply{Items: items},
	}
}

// MessageAction creates a quick-reply button that sends text on tap.
func MessageAction(label, text string) QuickReplyItem {
	return QuickReplyItem{
		Type: "action",
		Action: Action{
			Type:  "message",
			Label: label,
			Text:  text,
		},
	}
}

// PostbackAction creates a quick-reply button that sends a structured payload.
func PostbackAction(label, data, displayText string) QuickReplyItem {
	return QuickReplyItem{
		Type: "action",
		Action: Action{
			Type:        "postback",
			Label:       label,
			Data:        data,
			DisplayText: displayText,
		},
	}
}
