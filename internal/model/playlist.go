package model

// ItemType тип элемента плейлиста
type ItemType string

const (
	ItemTypeTrack   ItemType = "track"
	ItemTypeEpisode ItemType = "episode"
)

// Playlist плейлист пользователя
type Playlist struct {
	ID          string
	Name        string
	URL         string
	ImageURL    *string
	TotalTracks int
}

// TrackItem элемент плейлиста
type TrackItem struct {
	Type       ItemType
	Playable   bool
	DurationMs int64
	// Missing означает, что API не вернул данные трека (локальный или удалённый трек)
	Missing bool
}

// ItemPage одна страница элементов плейлиста
type ItemPage struct {
	Items []TrackItem
	Next  string
	Total int
}

// HasNext сообщает, есть ли у API следующая страница
func (p *ItemPage) HasNext() bool {
	return p != nil && p.Next != ""
}
