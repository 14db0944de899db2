package broadcast

import (
	"sync"

	"github.com/shenikar/dispatch_coordination_system/internal/models"
)

// Subscriber - хэндл живого подписчика. Send обязан ограничивать время
// записи, чтобы один медленный подписчик не задерживал рассылку остальным.
type Subscriber interface {
	Send(payload []byte) error
	Close() error
}

// Registry хранит живые подключения, сгруппированные по ролям. Один
// экземпляр на процесс, создается и закрывается явно при старте и остановке
// сервера; синхронизацию владеет сам реестр.
type Registry struct {
	mu    sync.RWMutex
	roles map[models.Role]map[Subscriber]struct{}
	index map[Subscriber]models.Role
}

func NewRegistry() *Registry {
	roles := make(map[models.Role]map[Subscriber]struct{}, len(models.Roles()))
	for _, role := range models.Roles() {
		roles[role] = make(map[Subscriber]struct{})
	}
	return &Registry{
		roles: roles,
		index: make(map[Subscriber]models.Role),
	}
}

// Add регистрирует хэндл под ролью
func (r *Registry) Add(sub Subscriber, role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[role]; !ok {
		return
	}
	r.roles[role][sub] = struct{}{}
	r.index[sub] = role
}

// Remove удаляет хэндл. Идемпотентна: повторный вызов и вызов для
// незарегистрированного хэндла безопасны. Удаление - единственный и
// необратимый терминальный переход подключения.
func (r *Registry) Remove(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.index[sub]
	if !ok {
		return
	}
	delete(r.roles[role], sub)
	delete(r.index, sub)
}

// Members возвращает снимок подписчиков заданных ролей без дублей.
// Снимок позволяет рассылать без удержания блокировки.
func (r *Registry) Members(roles ...models.Role) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[Subscriber]struct{})
	members := make([]Subscriber, 0)
	for _, role := range roles {
		for sub := range r.roles[role] {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			members = append(members, sub)
		}
	}
	return members
}

// Counts возвращает моментальный срез числа подключений по ролям
func (r *Registry) Counts() map[models.Role]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[models.Role]int, len(r.roles))
	for role, subs := range r.roles {
		counts[role] = len(subs)
	}
	return counts
}

// Close отключает всех подписчиков и очищает реестр. Часть остановки
// сервера.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.index {
		_ = sub.Close()
	}
	for role := range r.roles {
		r.roles[role] = make(map[Subscriber]struct{})
	}
	r.index = make(map[Subscriber]models.Role)
}
