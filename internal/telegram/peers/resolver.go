// Package peers — разрешение ссылок на каналы в пригодные для RPC пиры.
// Канал в конфигурации может быть задан как @username, голый username,
// ссылка t.me/... или числовой id в стиле Bot API (-100...). Успешные
// резолвы кэшируются в bbolt, чтобы не дёргать ContactsResolveUsername
// на каждый запуск.
package peers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/infra/storage"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"go.etcd.io/bbolt"
)

// botAPIChannelOffset — смещение между "сырым" id канала и его id в стиле
// Bot API: chat_id = -(offset + channel_id).
const botAPIChannelOffset = int64(1_000_000_000_000)

var peersBucket = []byte("peers")

// Peer — разрешённый канал или группа. ID — chat_id в стиле Bot API
// (то же значение уходит в payload и в карту последних сообщений).
type Peer struct {
	ID         int64
	Title      string
	ChannelID  int64
	AccessHash int64
	IsChat     bool // обычная группа без access hash
}

// InputPeer собирает входной пир для RPC-вызовов.
func (p Peer) InputPeer() tg.InputPeerClass {
	if p.IsChat {
		return &tg.InputPeerChat{ChatID: -p.ID}
	}
	return &tg.InputPeerChannel{ChannelID: p.ChannelID, AccessHash: p.AccessHash}
}

// cachedPeer — формат записи в bbolt.
type cachedPeer struct {
	ChannelID  int64  `json:"channel_id"`
	AccessHash int64  `json:"access_hash"`
	Title      string `json:"title"`
}

// Resolver резолвит каналы через Telegram API с persist-кэшем в bbolt.
type Resolver struct {
	api *tg.Client
	db  *bbolt.DB
}

// NewResolver открывает (или создаёт) файл кэша и готовит резолвер.
func NewResolver(api *tg.Client, cachePath string) (*Resolver, error) {
	if err := storage.EnsureDir(cachePath); err != nil {
		return nil, errors.Wrap(err, "ensure cache dir")
	}
	db, err := bbolt.Open(cachePath, storage.DefaultFilePerm, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open peers cache")
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, bErr := tx.CreateBucketIfNotExists(peersBucket)
		return bErr
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init peers bucket")
	}
	return &Resolver{api: api, db: db}, nil
}

// Close закрывает файл кэша.
func (r *Resolver) Close() error {
	return r.db.Close()
}

// Resolve превращает один элемент CHANNELS в Peer.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Peer, error) {
	ref := normalizeRef(raw)
	if ref == "" {
		return Peer{}, errors.Errorf("empty channel reference %q", raw)
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return r.resolveID(ctx, id)
	}
	return r.resolveUsername(ctx, ref)
}

// ResolveAll резолвит список каналов; нерезолвящиеся элементы логируются
// и пропускаются. Ошибка возвращается, только если не разрешился ни один.
func (r *Resolver) ResolveAll(ctx context.Context, raws []string) ([]Peer, error) {
	peers := make([]Peer, 0, len(raws))
	for _, raw := range raws {
		p, err := r.Resolve(ctx, raw)
		if err != nil {
			logger.Errorf("cannot resolve channel %q: %v", raw, err)
			continue
		}
		logger.Debugf("resolved channel %q -> %d (%s)", raw, p.ID, p.Title)
		peers = append(peers, p)
	}
	if len(peers) == 0 {
		return nil, errors.New("no channels could be resolved")
	}
	return peers, nil
}

// normalizeRef срезает ссылочную обвязку: схему, t.me, @ и хвостовой слэш.
func normalizeRef(raw string) string {
	ref := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(ref, prefix) {
			ref = strings.TrimPrefix(ref, prefix)
			break
		}
	}
	ref = strings.TrimPrefix(ref, "@")
	return strings.TrimSuffix(ref, "/")
}

// resolveID обрабатывает числовые ссылки. Отрицательные id в стиле Bot API
// (-100...) — каналы, прочие отрицательные — обычные группы; положительное
// число трактуется как голый id канала.
func (r *Resolver) resolveID(ctx context.Context, id int64) (Peer, error) {
	if id < 0 && id > -botAPIChannelOffset {
		return Peer{ID: id, Title: strconv.FormatInt(id, 10), IsChat: true}, nil
	}

	channelID := id
	if id < 0 {
		channelID = -id - botAPIChannelOffset
	}

	key := "id:" + strconv.FormatInt(channelID, 10)
	if cached, ok := r.load(key); ok {
		return peerFromCache(cached), nil
	}

	// Access hash неизвестен; для каналов из своих диалогов Telegram
	// принимает нулевой hash в ChannelsGetChannels.
	res, err := r.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: channelID},
	})
	if err != nil {
		return Peer{}, errors.Wrap(err, "get channel by id")
	}
	channel, err := firstChannel(res.GetChats())
	if err != nil {
		return Peer{}, err
	}
	return r.cacheChannel(channel), nil
}

// resolveUsername обрабатывает @username и t.me-ссылки.
func (r *Resolver) resolveUsername(ctx context.Context, username string) (Peer, error) {
	key := "u:" + strings.ToLower(username)
	if cached, ok := r.load(key); ok {
		return peerFromCache(cached), nil
	}

	res, err := r.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return Peer{}, errors.Wrapf(err, "resolve username %q", username)
	}
	channel, err := firstChannel(res.Chats)
	if err != nil {
		return Peer{}, errors.Wrapf(err, "username %q", username)
	}

	p := r.cacheChannel(channel)
	r.store(key, cachedPeer{ChannelID: channel.ID, AccessHash: channel.AccessHash, Title: channel.Title})
	return p, nil
}

// cacheChannel сохраняет канал под id-ключом и собирает Peer.
func (r *Resolver) cacheChannel(channel *tg.Channel) Peer {
	rec := cachedPeer{ChannelID: channel.ID, AccessHash: channel.AccessHash, Title: channel.Title}
	r.store("id:"+strconv.FormatInt(channel.ID, 10), rec)
	return peerFromCache(rec)
}

func peerFromCache(rec cachedPeer) Peer {
	return Peer{
		ID:         -(botAPIChannelOffset + rec.ChannelID),
		Title:      rec.Title,
		ChannelID:  rec.ChannelID,
		AccessHash: rec.AccessHash,
	}
}

func (r *Resolver) load(key string) (cachedPeer, bool) {
	var rec cachedPeer
	found := false
	_ = r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(peersBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			logger.Warnf("broken peers cache entry %q: %v", key, err)
			return nil
		}
		found = true
		return nil
	})
	return rec, found
}

func (r *Resolver) store(key string, rec cachedPeer) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(peersBucket).Put([]byte(key), data)
	}); err != nil {
		logger.Warnf("cannot cache peer %q: %v", key, err)
	}
}

// firstChannel достаёт первый канал/супергруппу из ответа API.
func firstChannel(chats []tg.ChatClass) (*tg.Channel, error) {
	for _, chat := range chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return channel, nil
		}
	}
	return nil, errors.New("no channel in API response")
}
