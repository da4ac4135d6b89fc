// Package feed раздаёт подписчикам живую ленту промо-объявлений.
package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/model"
)

// Текст, который видит покупатель, пока оператор не опубликовал
// ни одного объявления. Лента никогда не бывает пустой.
const defaultWelcomeText = "Welcome to Kalyanam Pharmaceuticals - Your Trusted Healthcare Partner!"

// Repository описывает контракт доступа к объявлениям.
type Repository interface {
	GetLatestAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)
	CreateAnnouncement(ctx context.Context, text string, priority model.AnnouncementPriority) (*model.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
}

// Feed опрашивает бекенд и при каждом изменении рассылает подписчикам
// полный набор последних объявлений (без поэлементных диффов).
type Feed struct {
	repo     Repository
	logger   *zap.Logger
	limit    int
	interval time.Duration

	mu      sync.Mutex
	nextID  int64
	subs    map[int64]chan []model.Announcement
	current []model.Announcement
	primed  bool
}

// New создаёт ленту объявлений: limit — размер выборки, interval — период
// опроса бекенда.
func New(repo Repository, logger *zap.Logger, limit int, interval time.Duration) *Feed {
	return &Feed{
		repo:     repo,
		logger:   logger,
		limit:    limit,
		interval: interval,
		subs:     make(map[int64]chan []model.Announcement),
	}
}

// Run опрашивает бекенд до отмены контекста. При выходе все подписки
// закрываются, чтобы не осталось висящих каналов.
func (f *Feed) Run(ctx context.Context) {
	f.poll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			return
		case <-ticker.C:
			f.poll(ctx)
		}
	}
}

func (f *Feed) poll(ctx context.Context) {
	items, err := f.repo.GetLatestAnnouncements(ctx, f.limit)
	if err != nil {
		f.logger.Error("fetch announcements error", zap.Error(err))
		return
	}

	if len(items) == 0 {
		items = []model.Announcement{defaultWelcome()}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.primed && equalSets(f.current, items) {
		return
	}

	f.current = items
	f.primed = true

	for _, ch := range f.subs {
		push(ch, items)
	}
}

// Subscribe регистрирует подписчика и сразу отдаёт ему текущий набор.
// Подписка снимается отменой контекста; не освобождённая подписка —
// утечка живого соединения.
func (f *Feed) Subscribe(ctx context.Context) <-chan []model.Announcement {
	ch := make(chan []model.Announcement, 1)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	if f.primed {
		push(ch, f.current)
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
		f.mu.Unlock()
	}()

	return ch
}

// Publish сохраняет объявление оператора и немедленно рассылает
// обновлённый набор, не дожидаясь очередного опроса.
func (f *Feed) Publish(ctx context.Context, text string, priority model.AnnouncementPriority) (*model.Announcement, error) {
	a, err := f.repo.CreateAnnouncement(ctx, text, priority)
	if err != nil {
		return nil, err
	}

	f.poll(ctx)
	return a, nil
}

// Remove удаляет объявление оператора и немедленно рассылает
// обновлённый набор.
func (f *Feed) Remove(ctx context.Context, id string) error {
	if err := f.repo.DeleteAnnouncement(ctx, id); err != nil {
		return err
	}

	f.poll(ctx)
	return nil
}

// Current возвращает последний разосланный набор объявлений.
func (f *Feed) Current() []model.Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.primed {
		return []model.Announcement{defaultWelcome()}
	}

	out := make([]model.Announcement, len(f.current))
	copy(out, f.current)
	return out
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// push не блокируется: устаревший неснятый набор замещается свежим.
func push(ch chan []model.Announcement, items []model.Announcement) {
	select {
	case ch <- items:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- items
	}
}

func defaultWelcome() model.Announcement {
	return model.Announcement{
		ID:        "default",
		Text:      defaultWelcomeText,
		Priority:  model.AnnouncementPriorityNormal,
		CreatedAt: time.Now(),
	}
}

func equalSets(a, b []model.Announcement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text || a[i].Priority != b[i].Priority {
			return false
		}
	}
	return true
}
