package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/recall-backend/internal/ai"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/repos"
	"github.com/yungbote/recall-backend/internal/types"
)

const (
	// memoryTopK bounds how many past messages are injected as context.
	memoryTopK = 3
	// historyWindow bounds how much recent thread history reaches the model.
	historyWindow = 20
)

// TurnInput is one inbound chat turn. MessageID is set when the client
// resubmits an edited message; the edit replaces the stored content and
// the turn reruns against the updated text.
type TurnInput struct {
	ChatID    uuid.UUID
	Content   string
	MessageID uuid.UUID
	Edited    bool
}

// Emitter delivers outbound events to the originating connection.
type Emitter interface {
	Emit(event string, data any) error
}

// TurnService runs the full lifecycle of one conversation turn: commit
// the user message, index it, retrieve memory and history, generate a
// reply, deliver it, then commit and index the reply.
type TurnService interface {
	HandleMessage(ctx context.Context, user *types.User, in TurnInput, emit Emitter) error
}

type turnService struct {
	log         *logger.Logger
	chatRepo    repos.ChatRepo
	messageRepo repos.MessageRepo
	memoryStore memory.Store
	embedder    ai.Embedder
	generator   ai.Generator
}

func NewTurnService(
	log *logger.Logger,
	chatRepo repos.ChatRepo,
	messageRepo repos.MessageRepo,
	memoryStore memory.Store,
	embedder ai.Embedder,
	generator ai.Generator,
) TurnService {
	return &turnService{
		log:         log.With("service", "TurnService"),
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		memoryStore: memoryStore,
		embedder:    embedder,
		generator:   generator,
	}
}

func (ts *turnService) HandleMessage(ctx context.Context, user *types.User, in TurnInput, emit Emitter) error {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return fmt.Errorf("message content is required")
	}

	chats, err := ts.chatRepo.GetByIDs(ctx, nil, []uuid.UUID{in.ChatID})
	if err != nil {
		return fmt.Errorf("fetch chat: %w", err)
	}
	if len(chats) == 0 || chats[0].UserID != user.ID {
		return ErrChatNotFound
	}

	userMsg, err := ts.commitUserMessage(ctx, user, in, content)
	if err != nil {
		return err
	}

	vector, err := ts.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed message: %w", err)
	}
	if err := ts.memoryStore.Upsert(ctx, memory.Record{
		ID:     userMsg.ID.String(),
		Vector: vector,
		Metadata: memory.Metadata{
			Chat: in.ChatID.String(),
			User: user.ID.String(),
			Text: content,
		},
	}); err != nil {
		return fmt.Errorf("index message: %w", err)
	}

	var (
		matches []memory.Match
		history []*types.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := ts.memoryStore.Query(gctx, vector, memoryTopK+1, user.ID.String())
		if err != nil {
			return fmt.Errorf("query memory: %w", err)
		}
		matches = found
		return nil
	})
	g.Go(func() error {
		recent, err := ts.messageRepo.GetRecentByChat(gctx, nil, in.ChatID, historyWindow)
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		history = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	turns := ts.buildTurns(history, userMsg, content, ts.memoryTexts(matches, userMsg.ID.String()))

	reply, err := ts.generator.GenerateReply(ctx, turns)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	// Deliver before persisting so the client never waits on storage.
	if err := emit.Emit("ai-response", map[string]any{
		"content": reply,
		"chat":    in.ChatID.String(),
	}); err != nil {
		return fmt.Errorf("emit response: %w", err)
	}

	modelMsg := &types.Message{
		ID:      uuid.New(),
		ChatID:  in.ChatID,
		UserID:  user.ID,
		Role:    types.RoleModel,
		Content: reply,
	}
	var replyVector []float32
	g2, g2ctx := errgroup.WithContext(ctx)
	g2.Go(func() error {
		if _, err := ts.messageRepo.Create(g2ctx, nil, []*types.Message{modelMsg}); err != nil {
			return fmt.Errorf("persist reply: %w", err)
		}
		return nil
	})
	g2.Go(func() error {
		v, err := ts.embedder.Embed(g2ctx, reply)
		if err != nil {
			return fmt.Errorf("embed reply: %w", err)
		}
		replyVector = v
		return nil
	})
	if err := g2.Wait(); err != nil {
		return err
	}

	if err := ts.memoryStore.Upsert(ctx, memory.Record{
		ID:     modelMsg.ID.String(),
		Vector: replyVector,
		Metadata: memory.Metadata{
			Chat: in.ChatID.String(),
			User: user.ID.String(),
			Text: reply,
		},
	}); err != nil {
		return fmt.Errorf("index reply: %w", err)
	}

	if err := ts.chatRepo.TouchLastActivity(ctx, nil, in.ChatID, time.Now().UTC()); err != nil {
		ts.log.Warn("Failed to bump chat activity",
			"chat_id", in.ChatID.String(),
			"error", err.Error(),
		)
	}
	return nil
}

// commitUserMessage stores the inbound text. Edits rewrite the original
// row so the memory record (keyed by message id) gets replaced on the
// upsert that follows; an edit whose target row is gone falls back to a
// fresh message rather than failing the turn.
func (ts *turnService) commitUserMessage(ctx context.Context, user *types.User, in TurnInput, content string) (*types.Message, error) {
	if in.Edited && in.MessageID != uuid.Nil {
		updated, found, err := ts.messageRepo.UpdateContent(ctx, nil, in.MessageID, user.ID, content)
		if err != nil {
			return nil, fmt.Errorf("update message: %w", err)
		}
		if found {
			return updated, nil
		}
		ts.log.Warn("Edit target missing, storing as new message",
			"chat_id", in.ChatID.String(),
			"message_id", in.MessageID.String(),
		)
	}

	msg := &types.Message{
		ID:      uuid.New(),
		ChatID:  in.ChatID,
		UserID:  user.ID,
		Role:    types.RoleUser,
		Content: content,
	}
	if _, err := ts.messageRepo.Create(ctx, nil, []*types.Message{msg}); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}

// memoryTexts extracts the injectable context lines, dropping the match
// for the message being answered. The index is queried right after that
// message is upserted, so with a read-your-writes backend it would
// otherwise always surface itself as the top hit.
func (ts *turnService) memoryTexts(matches []memory.Match, selfID string) []string {
	texts := make([]string, 0, memoryTopK)
	for _, m := range matches {
		if m.ID == selfID {
			continue
		}
		if strings.TrimSpace(m.Metadata.Text) == "" {
			continue
		}
		texts = append(texts, m.Metadata.Text)
		if len(texts) == memoryTopK {
			break
		}
	}
	return texts
}

// buildTurns converts the stored history into the provider conversation.
// History arrives newest-first; the model wants chronological order. The
// final turn carries the retrieved memory, when any, wrapped around the
// user's prompt.
func (ts *turnService) buildTurns(history []*types.Message, userMsg *types.Message, content string, memoryLines []string) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history)+1)
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.ID == userMsg.ID {
			continue
		}
		turns = append(turns, ai.Turn{Role: m.Role, Text: m.Content})
	}

	prompt := content
	if len(memoryLines) > 0 {
		prompt = "Use this context from our past conversations to help you answer:\n---\nCONTEXT:\n" +
			strings.Join(memoryLines, "\n") +
			"\n---\n\nPROMPT: " + content
	}
	turns = append(turns, ai.Turn{Role: types.RoleUser, Text: prompt})
	return turns
}
