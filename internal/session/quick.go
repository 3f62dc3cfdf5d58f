package session

// QuickQuestion is a canned prompt offered before a conversation starts.
type QuickQuestion struct {
	ID       string
	Label    string
	Question string
}

var QuickQuestions = []QuickQuestion{
	{ID: "summarize", Label: "Summarize", Question: "Summarize this page in 3 key points"},
	{ID: "topics", Label: "Main Topics", Question: "What are the main topics discussed here?"},
	{ID: "simplify", Label: "Simplify", Question: "Explain this in simple terms"},
	{ID: "keypoints", Label: "Key Points", Question: "What are the key takeaways?"},
	{ID: "latest", Label: "Latest Info", Question: "What's the latest information or updates mentioned?"},
	{ID: "facts", Label: "Facts & Stats", Question: "Are there any important facts or statistics?"},
}

// LookupQuick finds a quick question by ID.
func LookupQuick(id string) (QuickQuestion, bool) {
	for _, q := range QuickQuestions {
		if q.ID == id {
			return q, true
		}
	}
	return QuickQuestion{}, false
}
