package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/metrics"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/hilthontt/cipherroom/internal/infrastructure/tracing"
	"github.com/hilthontt/cipherroom/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultHistoryLimit = 300
	defaultStoreTimeout = 5 * time.Second

	eventsKey        = "events"
	profileKeyPrefix = "profile:"
)

// RetentionQueue receives rooms whose history just grew.
type RetentionQueue interface {
	Enqueue(roomCode string)
}

type Options struct {
	Registry     *repository.RoomRegistry
	Messages     domain.MessageRepository
	Profiles     domain.ProfileRepository
	Publisher    domain.RoomEventPublisher
	Retention    RetentionQueue
	Logger       logging.Logger
	Metrics      *metrics.Metrics
	HistoryLimit int
	StoreTimeout time.Duration
}

type Event struct {
	Client *Client
	Type   string
	Data   json.RawMessage

	// disconnect marks the terminal event of a connection. It travels through
	// the same queue as the frames so nothing the client sent is overtaken.
	disconnect bool
}

// Stats is a point in time view for the HTTP surface.
type Stats struct {
	ActiveRooms int `json:"activeRooms"`
	MaxRooms    int `json:"maxRooms"`
	Connections int `json:"connections"`
}

// Core owns every room and connection of the process. All state changes happen
// on the Run goroutine; store calls run as effects on a per room serial queue
// and hand their result back to Run as a continuation.
type Core struct {
	rooms       *repository.RoomRegistry
	subscribers *RoomManager
	clients     mapset.Set[*Client]

	register chan *Client
	events   chan Event
	resume   chan func()
	done     chan struct{}

	effects *serialExecutor
	ctx     context.Context

	messages     domain.MessageRepository
	profiles     domain.ProfileRepository
	publisher    domain.RoomEventPublisher
	retention    RetentionQueue
	logger       logging.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	historyLimit int
	storeTimeout time.Duration

	connections atomic.Int64
}

func NewCore(opts Options) *Core {
	if opts.Registry == nil {
		opts.Registry = repository.NewRoomRegistry(repository.DefaultMaxRooms)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}

	return &Core{
		rooms:        opts.Registry,
		subscribers:  NewRoomManager(),
		clients:      mapset.NewThreadUnsafeSet[*Client](),
		register:     make(chan *Client),
		events:       make(chan Event, 256),
		resume:       make(chan func(), 256),
		done:         make(chan struct{}),
		effects:      newSerialExecutor(),
		ctx:          context.Background(),
		messages:     opts.Messages,
		profiles:     opts.Profiles,
		publisher:    opts.Publisher,
		retention:    opts.Retention,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		tracer:       tracing.GetTracer("cipherroom/ws"),
		historyLimit: opts.HistoryLimit,
		storeTimeout: opts.StoreTimeout,
	}
}

// Run processes connection events until ctx is done, then closes every
// connection and forgets every room.
func (c *Core) Run(ctx context.Context) {
	c.ctx = ctx
	defer close(c.done)

	for {
		select {
		case cl := <-c.register:
			c.clients.Add(cl)
			c.connections.Store(int64(c.clients.Cardinality()))
			c.metrics.ActiveConnections.Inc()

		case evt := <-c.events:
			c.dispatch(evt)

		case next := <-c.resume:
			next()

		case <-ctx.Done():
			c.shutdown()
			return
		}
	}
}

// Wait blocks until in-flight effects finish. Call it after Run returned.
func (c *Core) Wait() {
	c.effects.Wait()
}

func (c *Core) Register(cl *Client) bool {
	select {
	case c.register <- cl:
		return true
	case <-c.done:
		return false
	}
}

// Unregister queues the disconnect of cl behind every event it dispatched
// before.
func (c *Core) Unregister(cl *Client) {
	select {
	case c.events <- Event{Client: cl, disconnect: true}:
	case <-c.done:
	}
}

// Dispatch hands an inbound event to the loop. It reports false once the Core
// has stopped.
func (c *Core) Dispatch(cl *Client, eventType string, data json.RawMessage) bool {
	select {
	case c.events <- Event{Client: cl, Type: eventType, Data: data}:
		return true
	case <-c.done:
		return false
	}
}

func (c *Core) Stats() Stats {
	return Stats{
		ActiveRooms: c.rooms.Count(),
		MaxRooms:    c.rooms.Capacity(),
		Connections: int(c.connections.Load()),
	}
}

func (c *Core) dispatch(evt Event) {
	cl := evt.Client
	if evt.disconnect {
		c.handleDisconnect(cl)
		return
	}
	if !c.clients.Contains(cl) {
		return
	}

	eventType := evt.Type
	if _, ok := inboundEvents[eventType]; !ok {
		eventType = "unknown"
	}
	c.metrics.Events.WithLabelValues(eventType).Inc()

	var err error
	switch evt.Type {
	case CreateRoom:
		err = c.handleCreateRoom(cl, evt.Data)
	case JoinRoom:
		err = c.handleJoinRoom(cl, evt.Data)
	case LeaveRoom:
		c.leaveCurrentRoom(cl)
	case SendMessage:
		err = c.handleSendMessage(cl, evt.Data)
	case ClearMessages:
		err = c.handleClearMessages(cl)
	case KickUser:
		err = c.handleKick(cl, evt.Data)
	case TransferOwnership:
		err = c.handleTransferOwnership(cl, evt.Data)
	case RequestParticipants:
		err = c.handleRequestParticipants(cl)
	case SetRoomNameEnc:
		err = c.handleSetRoomNameEnc(cl, evt.Data)
	default:
		err = domain.NewValidationError("unknown event %q", evt.Type)
	}

	if err != nil {
		c.sendError(cl, err)
	}
}

func (c *Core) handleDisconnect(cl *Client) {
	if !c.clients.Contains(cl) {
		return
	}

	c.leaveCurrentRoom(cl)
	c.clients.Remove(cl)
	c.connections.Store(int64(c.clients.Cardinality()))
	c.metrics.ActiveConnections.Dec()
	cl.Close()

	c.logger.Debug(logging.WebSocket, logging.Connection, "client disconnected", map[logging.ExtraKey]any{
		logging.ConnectionID: cl.ID,
	})
}

func (c *Core) shutdown() {
	for _, cl := range c.clients.ToSlice() {
		cl.Close()
	}
	c.clients.Clear()
	c.connections.Store(0)

	rooms := c.rooms.Clear()
	for _, room := range rooms {
		c.subscribers.DeleteRoom(room.Code)
	}

	c.metrics.ActiveConnections.Set(0)
	c.metrics.ActiveRooms.Set(0)

	c.logger.Info(logging.WebSocket, logging.Shutdown, "core stopped", map[logging.ExtraKey]any{
		logging.Count: len(rooms),
	})
}

// sendError reports err to cl. Errors outside the domain taxonomy are logged
// and replaced by a generic notice.
func (c *Core) sendError(cl *Client, err error) {
	code := domain.ErrorCode(err)
	message := err.Error()

	if !domain.IsUserError(err) {
		c.logger.Error(logging.WebSocket, logging.Dispatch, "event failed", map[logging.ExtraKey]any{
			logging.ConnectionID: cl.ID,
			logging.ErrorMessage: err.Error(),
		})
		message = "An unexpected error occurred"
	}

	c.metrics.Errors.WithLabelValues(code).Inc()
	cl.Send(NewError(cl.RoomCode, code, message))
}

// submit runs effect on the queue for key and posts the continuation it
// returns back to the loop.
func (c *Core) submit(key, name string, effect func(ctx context.Context) func()) {
	runCtx := c.ctx

	c.effects.Submit(key, func() {
		ctx, cancel := context.WithTimeout(runCtx, c.storeTimeout)
		ctx, span := c.tracer.Start(ctx, name)
		next := effect(ctx)
		span.End()
		cancel()

		if next != nil {
			c.post(next)
		}
	})
}

func (c *Core) post(next func()) {
	select {
	case c.resume <- next:
	case <-c.done:
	}
}

func recordSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// decode unmarshals and validates an inbound payload.
func decode[T any](data json.RawMessage) (T, error) {
	var payload T
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, domain.NewValidationError("malformed payload")
	}
	if err := validate.Struct(payload); err != nil {
		return payload, domain.NewValidationError("%s", err.Error())
	}

	return payload, nil
}

// currentRoom returns the room cl is attached to.
func (c *Core) currentRoom(cl *Client) (*domain.Room, error) {
	if cl.RoomCode == "" {
		return nil, domain.NewValidationError("join a room first")
	}

	room, err := c.rooms.Get(cl.RoomCode)
	if err != nil {
		c.detach(cl)
		return nil, err
	}

	return room, nil
}

// ownedRoom returns the room cl is attached to when cl owns it.
func (c *Core) ownedRoom(cl *Client) (*domain.Room, error) {
	room, err := c.currentRoom(cl)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(cl.ID) {
		return nil, domain.NewPermissionError("only the room owner can do that")
	}

	return room, nil
}

// isCurrent reports whether room is still registered under its code and cl is
// still attached to it.
func (c *Core) isCurrent(cl *Client, room *domain.Room) bool {
	if !c.isLive(room) {
		return false
	}
	return cl == nil || cl.RoomCode == room.Code
}

func (c *Core) isLive(room *domain.Room) bool {
	current, err := c.rooms.Get(room.Code)
	return err == nil && current == room
}

func (c *Core) attach(cl *Client, room *domain.Room, member domain.Member) {
	cl.RoomCode = room.Code
	cl.Username = member.Name
	cl.Avatar = member.AvatarURL
	cl.IsAdmin = room.IsOwner(cl.ID)
	cl.awaitingHistory = false

	c.subscribers.AddClient(room.Code, cl)
}

func (c *Core) detach(cl *Client) {
	if cl.RoomCode == "" {
		return
	}

	c.subscribers.RemoveClient(cl.RoomCode, cl)
	cl.RoomCode = ""
	cl.Username = ""
	cl.Avatar = ""
	cl.IsAdmin = false
	cl.awaitingHistory = false
}

func (c *Core) broadcast(room *domain.Room, msg *WSMessage) {
	for _, cl := range c.subscribers.Clients(room.Code) {
		cl.Send(msg)
	}
}

func (c *Core) publish(evt domain.RoomEvent) {
	if c.publisher == nil {
		return
	}

	c.submit(eventsKey, "room.publish", func(ctx context.Context) func() {
		err := c.publisher.Publish(ctx, evt)
		recordSpanError(ctx, err)

		if err != nil {
			c.metrics.PublishFailures.Inc()
			c.logger.Warn(logging.RabbitMQ, logging.Publish, "room event not published", map[logging.ExtraKey]any{
				logging.RoomRef:      evt.RoomRef,
				logging.EventType:    string(evt.Type),
				logging.ErrorMessage: err.Error(),
			})
		}
		return nil
	})
}

func (c *Core) recordVisit(cl *Client, room *domain.Room) {
	if cl.Identity == nil || c.profiles == nil {
		return
	}

	userID := cl.Identity.UserID
	visit := domain.RoomVisit{
		Code:          room.Code,
		Name:          room.DisplayName,
		LastJoinedAt:  time.Now().UTC(),
		LastUsername:  cl.Username,
		LastAvatarURL: cl.Avatar,
	}

	c.submit(profileKeyPrefix+userID, "profile.record_visit", func(ctx context.Context) func() {
		err := c.profiles.RecordVisit(ctx, userID, visit)
		recordSpanError(ctx, err)

		if err != nil {
			c.metrics.StoreFailures.WithLabelValues("profile").Inc()
			c.logger.Warn(logging.MongoDB, logging.Persist, "room visit not recorded", map[logging.ExtraKey]any{
				logging.RoomRef:      domain.RoomRef(visit.Code),
				logging.ErrorMessage: err.Error(),
			})
		}
		return nil
	})
}

func roomFields(room *domain.Room, cl *Client) map[logging.ExtraKey]any {
	fields := map[logging.ExtraKey]any{
		logging.RoomRef: domain.RoomRef(room.Code),
	}
	if cl != nil {
		fields[logging.ConnectionID] = cl.ID
	}
	return fields
}

func spanRoom(ctx context.Context, code string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("room.ref", domain.RoomRef(code)))
}
