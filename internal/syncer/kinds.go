package syncer

// Kind names one independently-synced queue. Items within a kind are
// processed in enqueue order; nothing is guaranteed across kinds.
type Kind string

const (
	KindVote            Kind = "vote"
	KindFavorite        Kind = "favorite"
	KindFeedback        Kind = "feedback"
	KindSession         Kind = "session"
	KindRoom            Kind = "room"
	KindSessionSpeaker  Kind = "session-speaker"
	KindSessionCategory Kind = "session-category"
	KindPodcast         Kind = "podcast"
)

// allKinds drives queue construction and the periodic sweep.
var allKinds = []Kind{
	KindVote,
	KindFavorite,
	KindFeedback,
	KindSession,
	KindRoom,
	KindSessionSpeaker,
	KindSessionCategory,
	KindPodcast,
}

// Task identifies the row a queue item concerns. Only the fields the
// kind needs are set.
type Task struct {
	SessionID  string
	SpeakerID  string
	RoomID     int64
	CategoryID int64
}
