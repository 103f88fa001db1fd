package domain

import "time"

// Sample is a labeled message used for training and validation.
type Sample struct {
	Content string `json:"content"`
	Spam    bool   `json:"spam"`
}

// LearningMessage is a labeled message queued for the auto-learning pass.
// Processed stays nil until a training pass has consumed the message.
type LearningMessage struct {
	ID        int64      `json:"id"`
	Message   string     `json:"message"`
	Spam      bool       `json:"spam"`
	Processed *time.Time `json:"processed,omitempty"`
}

// IsProcessed reports whether the message was consumed by training.
func (m *LearningMessage) IsProcessed() bool {
	return m.Processed != nil
}

// Mismatch is a validation record where the model disagreed with the label.
type Mismatch struct {
	Message  string `json:"message"`
	Expected bool   `json:"expected"`
}

// Label renders a spam flag as a log-friendly label.
func Label(spam bool) string {
	if spam {
		return "spam"
	}
	return "ham"
}

// ModelName identifies a learning model variant.
type ModelName string

const (
	ModelBayes  ModelName = "bayes"
	ModelNeural ModelName = "neural"
)
