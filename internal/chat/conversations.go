package chat

// buildConversations is the grouping-and-reduction pipeline behind the
// conversation list: partition every message touching user by counterpart,
// keep the newest message per counterpart as the preview, count unread
// inbound messages, and order counterparts by preview recency.
//
// The input must be sorted newest first, created_at DESC with id DESC
// breaking timestamp ties deterministically. That single ordering gives us
// both the preview (first message seen per counterpart) and the final
// conversation order (first-appearance order) in one pass.
func buildConversations(user int, msgs []Message) []Conversation {
	index := make(map[int]int) // counterpart id -> position in out
	out := []Conversation{}

	for _, m := range msgs {
		counterpart := m.From
		if m.From == user {
			counterpart = m.To
		}

		i, seen := index[counterpart]
		if !seen {
			i = len(out)
			index[counterpart] = i
			out = append(out, Conversation{
				FriendID:    counterpart,
				LastMessage: m,
			})
		}

		if m.To == user && !m.Read {
			out[i].UnreadCount++
		}
	}

	return out
}
