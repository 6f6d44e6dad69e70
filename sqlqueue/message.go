package sqlqueue

// Message is the completion notification delivered to a Query's callback.
// Type is the tag configured on the Connection that ran the query. On success
// Data is empty and Err is nil; on failure Data holds the error's description
// and Err the error itself.
type Message struct {
	Type int
	Data []byte
	Err  error
}

// Failed reports whether the message carries a failure payload.
func (m Message) Failed() bool {
	return len(m.Data) > 0
}

// Callback receives the completion message of an enqueued statement. It runs
// on the worker goroutine that executed the statement and should not block.
type Callback func(Message)

func successMessage(typeVal int) Message {
	return Message{Type: typeVal}
}

func failureMessage(typeVal int, err error) Message {
	text := err.Error()
	if text == "" {
		text = "statement execution failed"
	}
	return Message{Type: typeVal, Data: []byte(text), Err: err}
}
