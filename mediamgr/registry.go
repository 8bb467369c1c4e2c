package mediamgr

import (
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// registry 名称到音效描述的映射，按注册顺序遍历。仅工作协程访问。
type registry struct {
	sounds *orderedmap.OrderedMap[string, *interfaces.Sound]
}

func newRegistry() *registry {
	return &registry{sounds: orderedmap.New[string, *interfaces.Sound]()}
}

// register 新增或覆盖同名描述，返回是否覆盖了旧条目
func (r *registry) register(s interfaces.Sound) (*interfaces.Sound, bool) {
	snd := &s
	_, replaced := r.sounds.Set(s.Name, snd)
	return snd, replaced
}

func (r *registry) unregister(name string) (*interfaces.Sound, bool) {
	return r.sounds.Delete(name)
}

func (r *registry) lookup(name string) (*interfaces.Sound, bool) {
	return r.sounds.Get(name)
}

func (r *registry) len() int {
	return r.sounds.Len()
}

// list 返回按注册顺序排列的快照
func (r *registry) list() []*interfaces.Sound {
	out := make([]*interfaces.Sound, 0, r.sounds.Len())
	for pair := r.sounds.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (r *registry) flush() {
	r.sounds = orderedmap.New[string, *interfaces.Sound]()
}
