// Package spotify реализует доступ к Spotify Web API: авторизацию, сессию и постраничную выборку.
package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// API подмножество методов spotify.Client, которые использует сборщик
type API interface {
	// CurrentUsersPlaylists возвращает страницу плейлистов текущего пользователя
	CurrentUsersPlaylists(ctx context.Context, opts ...spotify.RequestOption) (*spotify.SimplePlaylistPage, error)
	// GetPlaylistItems возвращает страницу элементов плейлиста
	GetPlaylistItems(ctx context.Context, playlistID spotify.ID, opts ...spotify.RequestOption) (*spotify.PlaylistItemPage, error)
}

// APIProvider выдаёт актуальный клиент API
type APIProvider interface {
	API(ctx context.Context) (API, error)
}

// Waiter ограничитель частоты запросов
type Waiter interface {
	Wait(ctx context.Context) error
}

var _ API = (*spotify.Client)(nil)
