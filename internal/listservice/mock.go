package listservice

import "context"

func NewMemoryModel() *MemoryModel {
	return &MemoryModel{lists: make(map[listKey][]string)}
}

// SetFail makes every later append return err. A nil err restores normal behaviour.
func (m *MemoryModel) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MemoryModel) append(_ context.Context, kind Kind, userID, blogID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return nil, m.fail
	}

	key := listKey{kind: kind, userID: userID}
	ids := m.lists[key]
	for _, id := range ids {
		if id == blogID {
			return clone(ids), nil
		}
	}

	ids = append(ids, blogID)
	m.lists[key] = ids

	return clone(ids), nil
}

func (m *MemoryModel) get(_ context.Context, kind Kind, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return clone(m.lists[listKey{kind: kind, userID: userID}]), nil
}

func clone(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
