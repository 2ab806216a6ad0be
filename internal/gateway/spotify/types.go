package spotify

import (
	"github.com/based-on-what/Zortify/internal/model"
	"github.com/zmb3/spotify/v2"
)

const (
	// DefaultPageSize размер страницы для плейлистов и их элементов
	DefaultPageSize = 50

	// itemFields проекция полей для запроса элементов плейлиста
	itemFields = "items(track(type,duration_ms,is_playable)),next,total"
)

// toPlaylist переводит плейлист API в доменный тип
func toPlaylist(p spotify.SimplePlaylist) model.Playlist {
	var image *string
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		url := p.Images[0].URL
		image = &url
	}

	return model.Playlist{
		ID:          string(p.ID),
		Name:        p.Name,
		URL:         p.ExternalURLs["spotify"],
		ImageURL:    image,
		TotalTracks: int(p.Tracks.Total),
	}
}

// toTrackItem переводит элемент плейлиста API в доменный тип
func toTrackItem(item spotify.PlaylistItem) model.TrackItem {
	switch {
	case item.Track.Episode != nil:
		return model.TrackItem{
			Type:     model.ItemTypeEpisode,
			Playable: true,
		}
	case item.Track.Track != nil:
		track := item.Track.Track
		// is_playable приходит только при указанном market
		playable := track.IsPlayable == nil || *track.IsPlayable
		return model.TrackItem{
			Type:       model.ItemTypeTrack,
			Playable:   playable,
			DurationMs: int64(track.Duration),
		}
	default:
		return model.TrackItem{Missing: true}
	}
}

// toItemPage переводит страницу элементов API в доменный тип
func toItemPage(page *spotify.PlaylistItemPage) *model.ItemPage {
	items := make([]model.TrackItem, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, toTrackItem(item))
	}

	return &model.ItemPage{
		Items: items,
		Next:  page.Next,
		Total: int(page.Total),
	}
}
