package models

// SyncState tracks where a locally-held row sits in the reconciliation
// state machine. Anything other than Synced is considered pending work.
type SyncState string

const (
	SyncStateSynced   SyncState = "synced"
	SyncStatePending  SyncState = "pending"
	SyncStateInFlight SyncState = "inflight"
	SyncStateRejected SyncState = "rejected"
)

// Pending reports whether the row still carries unconfirmed local state.
func (s SyncState) Pending() bool {
	return s != SyncStateSynced
}

// Session represents a conference talk or service slot.
// Locally-authored sessions carry a "local-" prefixed placeholder ID until
// the server assigns a canonical one.
type Session struct {
	ID               string  `json:"id" gorm:"primaryKey"`
	Title            string  `json:"title" gorm:"not null"`
	Description      *string `json:"description"`
	StartsAt         int64   `json:"startsAt" gorm:"index"`
	EndsAt           int64   `json:"endsAt"`
	RoomID           *int64  `json:"roomId" gorm:"index"`
	IsServiceSession bool    `json:"isServiceSession"`
	IsPlenumSession  bool    `json:"isPlenumSession"`
	Status           string  `json:"status"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// Speaker is pull-only: the backend never accepts speaker writes from
// installations, so speakers only ever arrive via bulk or delta pulls.
type Speaker struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Bio            *string `json:"bio"`
	TagLine        *string `json:"tagLine"`
	ProfilePicture *string `json:"profilePicture"`
	IsTopSpeaker   bool    `json:"isTopSpeaker"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// Room uses server-assigned integer IDs. Locally-created rooms take a
// negative placeholder ID until sync assigns the canonical one.
type Room struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null"`
	Sort *int64 `json:"sort"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

type Category struct {
	ID    int64   `json:"id" gorm:"primaryKey"`
	Title string  `json:"title"`
	Sort  *int64  `json:"sort"`
	Type  *string `json:"type"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// SessionSpeaker and SessionCategory are junction rows synced at the
// relationship level, independently of the sessions they reference.
type SessionSpeaker struct {
	SessionID string `json:"sessionId" gorm:"primaryKey"`
	SpeakerID string `json:"speakerId" gorm:"primaryKey"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

type SessionCategory struct {
	SessionID  string `json:"sessionId" gorm:"primaryKey"`
	CategoryID int64  `json:"categoryId" gorm:"primaryKey"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// Vote holds one score per session per installation. On the device the
// installation ID column stays empty; the backend fills it from the
// bearer token so the same table shape serves both sides.
type Vote struct {
	SessionID      string `json:"sessionId" gorm:"primaryKey"`
	InstallationID string `json:"-" gorm:"primaryKey;default:''"`
	Score          int    `json:"score"`

	// Retracted tombstones a withdrawn vote until the server confirms
	// the withdrawal; only then is the row deleted.
	Retracted bool `json:"-" gorm:"default:false"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// MinScore and MaxScore bound the closed vote scale.
const (
	MinScore = 1
	MaxScore = 5
)

type Favorite struct {
	SessionID      string `json:"sessionId" gorm:"primaryKey"`
	InstallationID string `json:"-" gorm:"primaryKey;default:''"`
	IsFavorite     bool   `json:"isFavorite"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// Feedback keeps at most one free-text row per session; resubmission
// overwrites rather than appends.
type Feedback struct {
	SessionID      string `json:"sessionId" gorm:"primaryKey"`
	InstallationID string `json:"-" gorm:"primaryKey;default:''"`
	Value          string `json:"value"`

	SyncState    SyncState `json:"-" gorm:"index;default:synced"`
	LastSyncedAt *int64    `json:"-"`
	UpdatedAt    int64     `json:"-" gorm:"autoUpdateTime:milli"`
}

// Installation is a backend-side record of a signed anonymous identity.
type Installation struct {
	ID       string `json:"id" gorm:"primaryKey"`
	SignedAt int64  `json:"signedAt"`
}

// AllModels returns every model in migration order.
func AllModels() []any {
	return []any{
		&Room{},
		&Category{},
		&Speaker{},
		&Session{},
		&SessionSpeaker{},
		&SessionCategory{},
		&Vote{},
		&Favorite{},
		&Feedback{},
		&Installation{},
		&PodcastCategory{},
		&PodcastChannel{},
		&ChannelCategory{},
		&PodcastEpisode{},
		&EpisodeCategory{},
		&EpisodeProgress{},
		&PlaybackState{},
	}
}
