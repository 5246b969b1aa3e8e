package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomKey(t *testing.T) {
	require.Equal(t, "3:7", RoomKey(3, 7))
	require.Equal(t, "3:7", RoomKey(7, 3), "both orderings must land in the same room")
	require.Equal(t, "5:5", RoomKey(5, 5))
	require.NotEqual(t, RoomKey(1, 2), RoomKey(1, 3))
}

// msgAt builds a test message; minutes past a fixed epoch keep the ordering
// obvious at a glance.
func msgAt(id, from, to int, read bool, minutes int) Message {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Message{
		ID:        id,
		From:      from,
		To:        to,
		Text:      "m",
		Read:      read,
		Timestamp: base.Add(time.Duration(minutes) * time.Minute),
	}
}

// newestFirst is the ordering contract of allTouching.
func newestFirst(msgs ...Message) []Message {
	for i := 0; i < len(msgs); i++ {
		for j := i + 1; j < len(msgs); j++ {
			a, b := msgs[i], msgs[j]
			if a.Timestamp.Before(b.Timestamp) ||
				(a.Timestamp.Equal(b.Timestamp) && a.ID < b.ID) {
				msgs[i], msgs[j] = msgs[j], msgs[i]
			}
		}
	}
	return msgs
}

func TestBuildConversations_Empty(t *testing.T) {
	convs := buildConversations(1, nil)
	require.NotNil(t, convs)
	require.Empty(t, convs)
}

func TestBuildConversations_GroupsAndOrders(t *testing.T) {
	user := 1
	msgs := newestFirst(
		// With user 2: two unread inbound, one outgoing, newest at minute 30.
		msgAt(10, 2, 1, false, 10),
		msgAt(11, 1, 2, false, 20),
		msgAt(12, 2, 1, false, 30),
		// With user 3: one read inbound, newest at minute 40.
		msgAt(13, 3, 1, true, 40),
		// With user 4: outgoing only, newest at minute 5.
		msgAt(14, 1, 4, false, 5),
	)

	convs := buildConversations(user, msgs)
	require.Len(t, convs, 3)

	// Ordered by preview timestamp, most recent first.
	require.Equal(t, 3, convs[0].FriendID)
	require.Equal(t, 2, convs[1].FriendID)
	require.Equal(t, 4, convs[2].FriendID)

	// Counterpart with everything read is still listed, unread 0.
	require.Equal(t, 13, convs[0].LastMessage.ID)
	require.Equal(t, 0, convs[0].UnreadCount)

	// Preview is the newest message in the partition regardless of
	// direction; unread counts inbound-unread only.
	require.Equal(t, 12, convs[1].LastMessage.ID)
	require.Equal(t, 2, convs[1].UnreadCount)

	// Outbound unread messages never count against the sender.
	require.Equal(t, 14, convs[2].LastMessage.ID)
	require.Equal(t, 0, convs[2].UnreadCount)
}

func TestBuildConversations_TimestampTieBreaksByID(t *testing.T) {
	user := 1
	msgs := newestFirst(
		msgAt(21, 2, 1, false, 10),
		msgAt(22, 1, 2, false, 10), // same timestamp, higher id wins
	)

	convs := buildConversations(user, msgs)
	require.Len(t, convs, 1)
	require.Equal(t, 22, convs[0].LastMessage.ID)
	require.Equal(t, 1, convs[0].UnreadCount)
}

func TestBuildConversations_UnreadPerCounterpart(t *testing.T) {
	user := 5
	msgs := newestFirst(
		msgAt(1, 6, 5, false, 1),
		msgAt(2, 6, 5, false, 2),
		msgAt(3, 6, 5, true, 3),
		msgAt(4, 7, 5, false, 4),
	)

	convs := buildConversations(user, msgs)
	require.Len(t, convs, 2)
	require.Equal(t, 7, convs[0].FriendID)
	require.Equal(t, 1, convs[0].UnreadCount)
	require.Equal(t, 6, convs[1].FriendID)
	require.Equal(t, 2, convs[1].UnreadCount)
}
