package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	pkgerrors "nodal/pkg/errors"
	"nodal/pkg/observability"
)

const (
	assistantPlaceholder = "..."
	summaryInstruction   = "Write a concise summary in 2-3 short lines. No markdown, no bullets, no quotes. Return ONLY the summary."
)

// ChatReply is the outcome of one chat exchange
type ChatReply struct {
	NoteID  valueobjects.NoteID `json:"noteId"`
	Content string              `json:"content"`
	Summary string              `json:"summary,omitempty"`
	Failed  bool                `json:"failed"`
}

// ChatService runs conversations held by notes
type ChatService struct {
	workspaces *WorkspaceService
	provider   ports.ChatProvider
	logger     *zap.Logger
	metrics    *observability.Collector
}

// NewChatService creates a new chat service
func NewChatService(
	workspaces *WorkspaceService,
	provider ports.ChatProvider,
	logger *zap.Logger,
	metrics *observability.Collector,
) *ChatService {
	return &ChatService{
		workspaces: workspaces,
		provider:   provider,
		logger:     logger,
		metrics:    metrics,
	}
}

// Send appends a user message to the note and streams the assistant reply
// into it. onUpdate, when set, receives the accumulated reply after every
// chunk. A provider failure does not fail the call: the reply becomes
// "Error: <message>" and Failed is set. The first exchange of a note
// without a summary also generates one.
func (s *ChatService) Send(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	noteID valueobjects.NoteID,
	content string,
	onUpdate func(string),
) (*ChatReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.NewValidationError("message content is required")
	}

	var history []entities.Message
	var needsSummary bool
	err := s.workspaces.Mutate(ctx, workspaceID, "chat_send", func(c *aggregates.Canvas) error {
		note, ok := c.Document().Note(noteID)
		if !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, noteID)
		}
		needsSummary = len(note.Messages) == 0 && strings.TrimSpace(note.Summary) == ""

		if err := c.AppendMessage(noteID, entities.Message{Role: entities.RoleUser, Content: content}); err != nil {
			return err
		}
		history = append([]entities.Message(nil), note.Messages...)
		return c.AppendMessage(noteID, entities.Message{Role: entities.RoleAssistant, Content: assistantPlaceholder})
	})
	if err != nil {
		return nil, err
	}

	reply := &ChatReply{NoteID: noteID}
	var full strings.Builder
	streamErr := s.provider.GenerateStream(ctx, history, func(chunk string) {
		full.WriteString(chunk)
		total := full.String()
		if err := s.setReply(ctx, workspaceID, noteID, total); err != nil {
			s.logger.Warn("Failed to store streamed reply",
				zap.String("noteID", noteID.String()),
				zap.Error(err))
			return
		}
		if onUpdate != nil {
			onUpdate(total)
		}
	})
	s.metrics.RecordChat(s.provider.Name(), streamErr)

	if streamErr != nil {
		s.logger.Warn("Chat provider failed",
			zap.String("provider", s.provider.Name()),
			zap.String("noteID", noteID.String()),
			zap.Error(streamErr))
		reply.Failed = true
		reply.Content = "Error: " + streamErr.Error()
		if err := s.setReply(ctx, workspaceID, noteID, reply.Content); err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(reply.Content)
		}
		return reply, nil
	}

	reply.Content = full.String()
	if needsSummary {
		reply.Summary = s.summarize(ctx, workspaceID, noteID, content, reply.Content)
	}
	return reply, nil
}

// Summarize generates a summary for a note from its first exchange
func (s *ChatService) Summarize(ctx context.Context, workspaceID valueobjects.WorkspaceID, noteID valueobjects.NoteID) (string, error) {
	var question, answer string
	err := s.workspaces.Read(ctx, workspaceID, func(c *aggregates.Canvas) error {
		note, ok := c.Document().Note(noteID)
		if !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, noteID)
		}
		for _, m := range note.Messages {
			switch {
			case m.Role == entities.RoleUser && question == "":
				question = m.Content
			case m.Role == entities.RoleAssistant && answer == "":
				answer = m.Content
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if question == "" {
		return "", pkgerrors.NewValidationError("note has no conversation to summarize")
	}
	return s.summarize(ctx, workspaceID, noteID, question, answer), nil
}

// summarize asks the provider for a short summary and stores it. Failures
// are logged and leave the summary empty.
func (s *ChatService) summarize(ctx context.Context, workspaceID valueobjects.WorkspaceID, noteID valueobjects.NoteID, question, answer string) string {
	prompt := []entities.Message{
		{Role: entities.RoleSystem, Content: summaryInstruction},
		{Role: entities.RoleUser, Content: fmt.Sprintf("User: %s\n\nAssistant: %s", question, answer)},
	}

	var out strings.Builder
	err := s.provider.GenerateStream(ctx, prompt, func(chunk string) {
		out.WriteString(chunk)
	})
	if err != nil {
		s.logger.Warn("Auto-summary failed", zap.String("noteID", noteID.String()), zap.Error(err))
		return ""
	}

	summary := strings.TrimSpace(out.String())
	if summary == "" {
		return ""
	}
	err = s.workspaces.Mutate(ctx, workspaceID, "chat_summary", func(c *aggregates.Canvas) error {
		return c.UpdateNote(noteID, aggregates.NotePatch{Summary: &summary})
	})
	if err != nil {
		s.logger.Warn("Failed to store summary", zap.String("noteID", noteID.String()), zap.Error(err))
		return ""
	}
	return summary
}

func (s *ChatService) setReply(ctx context.Context, workspaceID valueobjects.WorkspaceID, noteID valueobjects.NoteID, content string) error {
	return s.workspaces.Mutate(ctx, workspaceID, "chat_chunk", func(c *aggregates.Canvas) error {
		return c.ReplaceLastAssistantContent(noteID, content)
	})
}
