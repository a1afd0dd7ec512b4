package store

import "time"

// TagCategory values match the legacy column encoding.
type TagCategory int

const (
	CategoryGeneral   TagCategory = 0
	CategoryArtist    TagCategory = 1
	CategoryCopyright TagCategory = 3
	CategoryCharacter TagCategory = 4
	CategoryMeta      TagCategory = 5
)

type Post struct {
	ID                int64
	MD5               string
	FileExt           string
	ImageWidth        int
	ImageHeight       int
	FileSize          int64
	TagString         string
	TagCount          int
	TagCountGeneral   int
	TagCountArtist    int
	TagCountCopyright int
	TagCountCharacter int
	Rating            string
	Source            string
	ParentID          *int64
	HasChildren       bool
	IsPending         bool
	IsFlagged         bool
	IsDeleted         bool
	IsBanned          bool
	IsRatingLocked    bool
	IsNoteLocked      bool
	IsStatusLocked    bool
	UploaderID        int64
	ApproverID        *int64
	Score             int
	UpScore           int
	DownScore         int
	FavCount          int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Tag struct {
	ID        int64
	Name      string
	Category  TagCategory
	PostCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TagAlias struct {
	ID             int64
	AntecedentName string
	ConsequentName string
}

type TagImplication struct {
	ID             int64
	AntecedentName string
	ConsequentName string
}

type PostVersion struct {
	ID        int64
	PostID    int64
	Tags      string
	Rating    string
	Source    string
	ParentID  *int64
	UpdaterID int64
	UpdatedAt time.Time
}

type PostFlag struct {
	ID         string
	PostID     int64
	CreatorID  int64
	Reason     string
	IsResolved bool
	CreatedAt  time.Time
}

type PostAppeal struct {
	ID        string
	PostID    int64
	CreatorID int64
	Reason    string
	CreatedAt time.Time
}

type PostVote struct {
	PostID    int64
	UserID    int64
	Score     int
	CreatedAt time.Time
}

type ModAction struct {
	ID          string
	CreatorID   int64
	Description string
	CreatedAt   time.Time
}

type Pool struct {
	ID          int64
	Name        string
	Description string
	IsDeleted   bool
	CreatedAt   time.Time
}
