package behavior

import (
	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/memory"
)

// ActionLayerBehavior allocates the fragment:display memory entry from the
// block's source fragments on push (§4.4). Every strategy's behavior list
// in §4.5 opens with infrastructure behaviors; this is the one that makes
// the compiled statement's fragments visible to the UI layer at all.
type ActionLayerBehavior struct{ Base }

// NewActionLayerBehavior constructs an ActionLayerBehavior.
func NewActionLayerBehavior() *ActionLayerBehavior { return &ActionLayerBehavior{} }

func (b *ActionLayerBehavior) ID() ID       { return IDActionLayer }
func (b *ActionLayerBehavior) Priority() int { return PriorityInfrastructure }

func (b *ActionLayerBehavior) OnPush(ctx *Context) []action.Action {
	return []action.Action{
		setMemory(ctx.Block.ID, MemFragmentDisplay, ctx.Block.Source.Fragments, memory.Public, action.Display, true),
	}
}
