package chat

// Destination layout of the chat broker. Application destinations take
// client publishes; topics carry broker-to-client traffic.

func destInit(counterpartID string) string  { return "/app/chat.init." + counterpartID }
func destHistory(roomID string) string      { return "/app/chat.history." + roomID }
func destSend(roomID string) string         { return "/app/chat.send." + roomID }
func destEdit(roomID string) string         { return "/app/chat.edit." + roomID }
func destDelete(roomID string) string       { return "/app/chat.delete." + roomID }
func topicInit(counterpartID string) string { return "/topic/chat.init." + counterpartID }
func topicMessages(roomID string) string    { return "/topic/chat." + roomID + ".messages" }
func topicUpdates(roomID string) string     { return "/topic/chat." + roomID + ".updates" }
