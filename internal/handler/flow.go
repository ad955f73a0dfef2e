package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/generator"
)

// sessionTTL is how long a flow waits for its next interaction.
const sessionTTL = 15 * time.Minute

func InstanceIDFromInteraction(i *discordgo.InteractionCreate) string {
	var customID string

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		customID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		customID = i.ModalSubmitData().CustomID
	default:
		return ""
	}

	return InstanceIDFromCustomID(customID)
}

func InstanceIDFromCustomID(customID string) string {
	parts := strings.SplitN(customID, ":", 2)
	if len(parts) != 2 {
		return ""
	}

	return parts[1]
}

// commandMatcher matches the slash command name and, if given, its first
// subcommand.
func commandMatcher(name, subcommand string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		data := i.ApplicationCommandData()
		if data.Name != name {
			return false
		}
		if subcommand == "" {
			return true
		}
		return len(data.Options) > 0 && data.Options[0].Name == subcommand
	}
}

// componentMatcher matches components whose custom ID was built with
// presenters.CustomID(componentID, ...).
func componentMatcher(componentID string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		return strings.HasPrefix(i.MessageComponentData().CustomID, componentID+":")
	}
}

type FlowContext struct {
	InstanceID string
	State      map[string]any
}

type NodeHandler func(context.Context, DiscordSession, *discordgo.InteractionCreate, *FlowContext) error

type Node struct {
	ID      string
	Matcher func(*discordgo.InteractionCreate) bool
	Handler NodeHandler
	Next    []*Node
}

type Flow struct {
	ID   string
	Root *Node
}

type session struct {
	flow    *Flow
	node    *Node
	ctx     *FlowContext
	touched time.Time
}

// FlowManager routes interactions to multi-step flows. A flow starts when
// its root matches a fresh interaction and advances when a component carrying
// the flow's instance ID matches one of the current node's successors.
type FlowManager struct {
	flowsMu *sync.RWMutex
	flows   []*Flow

	sessionsMu *sync.RWMutex
	sessions   map[string]*session

	idGenerator generator.Generator[string]
	now         func() time.Time
}

func NewFlowManager(idGenerator generator.Generator[string]) *FlowManager {
	if idGenerator == nil {
		idGenerator = &generator.UUIDV4Generator{}
	}
	return &FlowManager{
		flowsMu:     &sync.RWMutex{},
		sessionsMu:  &sync.RWMutex{},
		sessions:    make(map[string]*session),
		idGenerator: idGenerator,
		now:         time.Now,
	}
}

func (fm *FlowManager) RegisterFlow(flow *Flow) {
	fm.flowsMu.Lock()
	defer fm.flowsMu.Unlock()

	for _, f := range fm.flows {
		if f.ID == flow.ID {
			panic("flow already registered")
		}
	}
	fm.flows = append(fm.flows, flow)
}

// Router dispatches i. It reports whether any flow handled it.
func (fm *FlowManager) Router(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate) (bool, error) {
	instanceID := InstanceIDFromInteraction(i)
	if instanceID != "" {
		fm.sessionsMu.RLock()
		session, inFlow := fm.sessions[instanceID]
		fm.sessionsMu.RUnlock()
		if inFlow {
			return fm.advance(ctx, s, i, session)
		}
		return false, nil
	}

	return fm.initializeFlow(ctx, s, i)
}

func (fm *FlowManager) finish(instanceID string) {
	fm.sessionsMu.Lock()
	delete(fm.sessions, instanceID)
	fm.sessionsMu.Unlock()
}

func (fm *FlowManager) advance(
	ctx context.Context,
	s DiscordSession,
	i *discordgo.InteractionCreate,
	sess *session,
) (bool, error) {
	var nextNode *Node
	for _, n := range sess.node.Next {
		if n.Matcher(i) {
			nextNode = n
			break
		}
	}
	if nextNode == nil {
		return false, nil
	}

	sess.node = nextNode
	sess.touched = fm.now()
	if len(nextNode.Next) == 0 {
		fm.finish(sess.ctx.InstanceID)
	}
	return true, nextNode.Handler(ctx, s, i, sess.ctx)
}

// prune forgets flows nobody has touched within sessionTTL.
func (fm *FlowManager) prune() {
	cutoff := fm.now().Add(-sessionTTL)

	fm.sessionsMu.Lock()
	defer fm.sessionsMu.Unlock()
	for id, sess := range fm.sessions {
		if sess.touched.Before(cutoff) {
			delete(fm.sessions, id)
		}
	}
}

func (fm *FlowManager) initializeFlow(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate) (bool, error) {
	fm.flowsMu.RLock()
	var f *Flow
	for _, flow := range fm.flows {
		if flow.Root.Matcher(i) {
			f = flow
			break
		}
	}
	fm.flowsMu.RUnlock()
	if f == nil {
		return false, nil
	}

	instanceID, err := fm.idGenerator.Next()
	if err != nil {
		return true, fmt.Errorf("failed to generate instance ID: %w", err)
	}

	flowCtx := &FlowContext{
		InstanceID: instanceID,
		State:      make(map[string]any),
	}

	if len(f.Root.Next) > 0 {
		fm.prune()
		fm.sessionsMu.Lock()
		fm.sessions[instanceID] = &session{flow: f, node: f.Root, ctx: flowCtx, touched: fm.now()}
		fm.sessionsMu.Unlock()
	}

	return true, f.Root.Handler(ctx, s, i, flowCtx)
}

// activeSessions is the number of flows waiting for a follow-up.
func (fm *FlowManager) activeSessions() int {
	fm.sessionsMu.RLock()
	defer fm.sessionsMu.RUnlock()
	return len(fm.sessions)
}
