package process_blob

import (
	"fmt"
	"sync"

	"climbsplit/process"
)

// Opener hands out queued images by name, one per OpenProcessByName call, the way
// a game is launched, closed and launched again.
type Opener struct {
	mu     sync.Mutex
	queue  []*Image
	Opened int
}

var _ process.ProcessOpener = (*Opener)(nil)

func NewOpener(images ...*Image) *Opener {
	return &Opener{queue: images}
}

// Push queues another launch
func (o *Opener) Push(img *Image) {
	o.mu.Lock()
	o.queue = append(o.queue, img)
	o.mu.Unlock()
}

func (o *Opener) OpenProcessByName(name string) (process.Process, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) == 0 || o.queue[0].Name() != name {
		return nil, fmt.Errorf("no process found with name '%s': %w", name, process.ErrProcessNotFound)
	}
	img := o.queue[0]
	o.queue = o.queue[1:]
	o.Opened++
	return img, nil
}
