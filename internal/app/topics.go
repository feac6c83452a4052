package app

import (
	"context"
	"strings"
)

// TopicStore maintains the save-to-topic workflow and the client's view of
// saved topics and papers. Topic resolution happens server-side by name
// (create-if-absent); the client never caches a name→id mapping for saves.
type TopicStore struct {
	client *Client
	logger *Logger
	bus    *Bus

	topics []Topic
	papers []SavedPaper
	// paperTopic is the topic the cached papers belong to; zero when no
	// topic has been opened yet.
	paperTopic int64
}

func NewTopicStore(client *Client, logger *Logger, bus *Bus) *TopicStore {
	return &TopicStore{client: client, logger: logger, bus: bus}
}

// Save attaches a search result to a topic by name. An empty name is a local
// validation failure; no network call is made.
func (t *TopicStore) Save(ctx context.Context, paper Paper, topicName string) (SaveResponse, error) {
	topicName = strings.TrimSpace(topicName)
	if topicName == "" {
		return SaveResponse{}, validationErr(CodeEmptyTopicName, "topic name is required")
	}
	resp, err := t.client.SavePaper(ctx, paper, topicName)
	if err != nil {
		return SaveResponse{}, err
	}
	return resp, nil
}

// ApplySaved records a successful save and notifies dependents that the
// topic list (and its counts) is stale.
func (t *TopicStore) ApplySaved() {
	t.bus.Publish(TopicsChanged)
	t.bus.Publish(PapersChanged)
}

func (t *TopicStore) FetchTopics(ctx context.Context) ([]Topic, error) {
	return t.client.Topics(ctx)
}

func (t *TopicStore) ApplyTopics(topics []Topic) {
	t.topics = topics
}

func (t *TopicStore) FetchPapers(ctx context.Context, topicID int64) ([]SavedPaper, error) {
	return t.client.TopicPapers(ctx, topicID)
}

func (t *TopicStore) ApplyPapers(topicID int64, papers []SavedPaper) {
	t.paperTopic = topicID
	t.papers = papers
}

// Delete removes a saved paper server-side. The caller applies the removal
// only on success; there is no optimistic removal, so a failed delete leaves
// the paper visible.
func (t *TopicStore) Delete(ctx context.Context, paperID int64) error {
	return t.client.DeletePaper(ctx, paperID)
}

// ApplyDeleted drops the paper from the cached view. Deleting the last paper
// does not drop the topic; an empty topic remains listable with a zero
// count.
func (t *TopicStore) ApplyDeleted(paperID int64) {
	kept := t.papers[:0]
	for _, p := range t.papers {
		if p.ID != paperID {
			kept = append(kept, p)
		}
	}
	t.papers = kept
	for i := range t.topics {
		if t.topics[i].ID == t.paperTopic && t.topics[i].PaperCount > 0 {
			t.topics[i].PaperCount--
		}
	}
	t.bus.Publish(PapersChanged)
}

func (t *TopicStore) Topics() []Topic      { return t.topics }
func (t *TopicStore) Papers() []SavedPaper { return t.papers }
func (t *TopicStore) PaperTopic() int64    { return t.paperTopic }
