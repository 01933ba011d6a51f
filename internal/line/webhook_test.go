package line

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"destination": "Ubot",
		"events": [
			{"type": "follow", "replyToken": "rt-1", "timestamp": 1700000000000, "source": {"type": "user", "userId": "U1"}},
			{"type": "message", "replyToken": "rt-2", "source": {"type": "user", "userId": "U1"},
			 "message": {"id": "m1", "type": "text", "text": "new ticket"}},
			{"type": "postback", "replyToken": "rt-3", "source": {"type": "user", "userId": "U1"},
			 "postback": {"data": "dept_2"}}
		]
	}`)

	hook, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Equal(t, "Ubot", hook.Destination)
	require.Len(t, hook.Events, 3)

	require.Equal(t, EventFollow, hook.Events[0].Type)
	require.Equal(t, "U1", hook.Events[0].Source.UserID)

	msg := hook.Events[1].Message
	require.NotNil(t, msg)
	require.Equal(t, MessageText, msg.Type)
	require.Equal(t, "new ticket", msg.Text)

	pb := hook.Events[2].Postback
	require.NotNil(t, pb)
	require.Equal(t, "dept_2", pb.Data)
}

func TestParseWebhookEmptyEvents(t *testing.T) {
	hook, err := ParseWebhook([]byte(`{"destination":"Ubot","events":[]}`))
	require.NoError(t, err)
	require.Empty(t, hook.Events)
}

func TestParseWebhookMalformed(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"events":`))
	require.Error(t, err)
}
