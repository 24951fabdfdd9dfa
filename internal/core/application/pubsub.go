package application

import "sort"

// Topic identifies a kind of ledger event.
type Topic int

func TopicFromLabel(label string) (Topic, bool) {
	topic, ok := stringToTopic[label]
	return topic, ok
}

// Topics returns every known topic ordered by code.
func Topics() []Topic {
	topics := make([]Topic, 0, len(topicToString))
	for topic := range topicToString {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

func (t Topic) Code() int {
	return int(t)
}

func (t Topic) Label() string {
	label, ok := topicToString[t]
	if !ok {
		return "UNKNOWN"
	}
	return label
}

func (t Topic) String() string {
	return t.Label()
}
