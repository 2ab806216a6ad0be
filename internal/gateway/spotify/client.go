package spotify

import (
	"context"
	"fmt"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/retry"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
)

// MarketFromToken рынок, определяемый по токену пользователя
const MarketFromToken = "from_token"

// Options параметры клиента
type Options struct {
	PageSize int
	Market   string
}

// Client выполняет запросы к Spotify API через лимитер, сессию и политику повторов
type Client struct {
	session  APIProvider
	limiter  Waiter
	retry    *retry.Policy
	pageSize int
	market   string
	logger   *zap.Logger
}

// NewClient создает новый клиент
func NewClient(session APIProvider, limiter Waiter, policy *retry.Policy, opts Options, logger *zap.Logger) *Client {
	if opts.PageSize <= 0 || opts.PageSize > DefaultPageSize {
		opts.PageSize = DefaultPageSize
	}
	if policy == nil {
		policy = retry.NewPolicy(nil, logger)
	}

	return &Client{
		session:  session,
		limiter:  limiter,
		retry:    policy,
		pageSize: opts.PageSize,
		market:   opts.Market,
		logger:   logger,
	}
}

// PageSize возвращает размер страницы
func (c *Client) PageSize() int {
	return c.pageSize
}

// do выполняет один вызов API с ограничением частоты и повторами
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context, api API) error) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		api, err := c.session.API(ctx)
		if err != nil {
			return newAPIError(op, err)
		}

		return newAPIError(op, fn(ctx, api))
	})
}

// FetchItems получает одну страницу элементов плейлиста начиная с offset
func (c *Client) FetchItems(ctx context.Context, playlistID string, offset int) (*model.ItemPage, error) {
	opts := []spotify.RequestOption{
		spotify.Fields(itemFields),
		spotify.Limit(c.pageSize),
		spotify.Offset(offset),
	}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	c.logger.Debug("Requesting playlist items page",
		zap.String("playlist_id", playlistID),
		zap.Int("offset", offset),
		zap.Int("limit", c.pageSize))

	var page *spotify.PlaylistItemPage
	err := c.do(ctx, "get playlist items", func(ctx context.Context, api API) error {
		var err error
		page, err = api.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get items of playlist %s at offset %d: %w", playlistID, offset, err)
	}

	result := toItemPage(page)

	c.logger.Debug("Retrieved playlist items page",
		zap.String("playlist_id", playlistID),
		zap.Int("offset", offset),
		zap.Int("items_in_page", len(result.Items)),
		zap.Int("total_items", result.Total))

	return result, nil
}

// ListPlaylists получает все плейлисты текущего пользователя, следуя курсору next
func (c *Client) ListPlaylists(ctx context.Context) ([]model.Playlist, error) {
	var playlists []model.Playlist
	offset := 0

	for {
		var page *spotify.SimplePlaylistPage
		err := c.do(ctx, "get current user playlists", func(ctx context.Context, api API) error {
			var err error
			page, err = api.CurrentUsersPlaylists(ctx, spotify.Limit(c.pageSize), spotify.Offset(offset))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists at offset %d: %w", offset, err)
		}

		for _, p := range page.Playlists {
			playlists = append(playlists, toPlaylist(p))
		}

		c.logger.Info("Fetched playlists page",
			zap.Int("offset", offset),
			zap.Int("fetched_so_far", len(playlists)),
			zap.Int("total", int(page.Total)))

		if page.Next == "" || len(page.Playlists) == 0 {
			break
		}
		offset += len(page.Playlists)
	}

	return playlists, nil
}
