package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"chat-orchestrator/internal/domain"
)

const (
	agentUnavailableMessage = "The agent service is unavailable. Please try again shortly."
	agentIndexingMessage    = "Indexing the uploaded files failed. Please try uploading them again."
)

// annotationSpan is one citation the agent attached to a range of its output.
type annotationSpan struct {
	start    int
	end      int
	fileName string
}

// AgentChatService runs a turn against a hosted agent with server-side
// threads and file search. Uploaded files are added to the thread's vector
// store before the run; the store is created on first upload and reused
// afterwards.
type AgentChatService struct {
	client         domain.AgentClient
	defaultAgentID string
	pollInterval   time.Duration
	logger         *slog.Logger
}

func NewAgentChatService(client domain.AgentClient, defaultAgentID string, pollInterval time.Duration, logger *slog.Logger) *AgentChatService {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &AgentChatService{
		client:         client,
		defaultAgentID: defaultAgentID,
		pollInterval:   pollInterval,
		logger:         logger,
	}
}

func (s *AgentChatService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 4)
	go func() {
		defer close(out)

		thread, err := s.resolveThread(ctx, req)
		if err != nil {
			s.logger.Error("agent thread resolution failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, agentUnavailableMessage))
			return
		}

		if len(req.FileAttachments) > 0 {
			if err := s.attachFiles(ctx, thread, req.FileAttachments); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("agent file attachment failed",
					slog.String("profile", profile.Name), slog.Any("error", err))
				sendChunk(ctx, out, terminalError(profile, req, agentIndexingMessage))
				return
			}
		}

		agentID := profile.AgentID
		if agentID == "" {
			agentID = s.defaultAgentID
		}

		start := time.Now()
		events, errCh, err := s.client.StreamRun(ctx, agentID, thread.ID, req.Question())
		if err != nil {
			s.logger.Error("agent run setup failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, agentUnavailableMessage))
			return
		}

		var answer []rune
		var annotations []annotationSpan
		seenFiles := make(map[string]struct{})
		codeChunks := 0
		running := true

		for running {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					running = false
					continue
				}
				switch ev.Kind {
				case domain.AgentEventText:
					answer = append(answer, []rune(ev.Text)...)
					if !sendChunk(ctx, out, domain.ChatChunkResponse{Text: ev.Text}) {
						return
					}
				case domain.AgentEventCode:
					// Tool output is bookkept for the thought log but not shown.
					codeChunks++
				case domain.AgentEventAnnotation:
					annotations = append(annotations, annotationSpan{
						start:    ev.Start,
						end:      ev.End,
						fileName: ev.FileName,
					})
				case domain.AgentEventFile:
					// Generated files can repeat across run events; link each once.
					if _, dup := seenFiles[ev.FileID]; dup {
						continue
					}
					seenFiles[ev.FileID] = struct{}{}
					link := fmt.Sprintf("\n![%s](%s)\n", ev.FileName, s.client.FileContentURL(ev.FileID))
					answer = append(answer, []rune(link)...)
					if !sendChunk(ctx, out, domain.ChatChunkResponse{Text: link}) {
						return
					}
				case domain.AgentEventDone:
					running = false
				}
			case runErr, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				s.logger.Error("agent run failed",
					slog.String("profile", profile.Name), slog.Any("error", runErr))
				sendChunk(ctx, out, terminalError(profile, req, agentUnavailableMessage))
				return
			}
		}

		respCtx := newResponseContext(profile, req)
		respCtx.ThreadID = thread.ID
		respCtx.DataPoints = annotationRecords(answer, annotations)
		respCtx.Thoughts = []domain.ThoughtRecord{
			{
				Title:       "Run agent",
				Description: fmt.Sprintf("thread %s, %d tool output chunks suppressed", thread.ID, codeChunks),
				ElapsedMs:   time.Since(start).Milliseconds(),
			},
		}
		sendChunk(ctx, out, domain.ChatChunkResponse{
			FinalResult: &domain.ApproachResponse{
				Answer:  string(answer),
				Context: respCtx,
			},
		})
	}()
	return out
}

func (s *AgentChatService) resolveThread(ctx context.Context, req domain.ChatRequest) (*domain.AgentThread, error) {
	if req.ThreadID != "" {
		return s.client.GetThread(ctx, req.ThreadID)
	}
	return s.client.CreateThread(ctx)
}

// attachFiles uploads the attachments in parallel, then adds them to the
// thread's vector store, creating it on first use, and waits for indexing.
func (s *AgentChatService) attachFiles(ctx context.Context, thread *domain.AgentThread, attachments []domain.FileAttachment) error {
	fileIDs := make([]string, len(attachments))
	g, gctx := errgroup.WithContext(ctx)
	for i, att := range attachments {
		i, att := i, att
		g.Go(func() error {
			data, err := base64.StdEncoding.DecodeString(att.DataBase64)
			if err != nil {
				return fmt.Errorf("decode attachment %q: %w", att.Name, err)
			}
			id, err := s.client.UploadFile(gctx, att.Name, att.ContentType, data)
			if err != nil {
				return fmt.Errorf("upload %q: %w", att.Name, err)
			}
			fileIDs[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	storeID := thread.VectorStoreID
	if storeID == "" {
		store, err := s.client.CreateVectorStore(ctx, thread.ID, fileIDs)
		if err != nil {
			return fmt.Errorf("create vector store: %w", err)
		}
		storeID = store.ID
		thread.VectorStoreID = store.ID
	} else {
		if err := s.client.AddFilesToVectorStore(ctx, storeID, fileIDs); err != nil {
			return fmt.Errorf("add files to vector store: %w", err)
		}
	}

	return s.waitForVectorStore(ctx, storeID)
}

func (s *AgentChatService) waitForVectorStore(ctx context.Context, storeID string) error {
	for {
		store, err := s.client.GetVectorStore(ctx, storeID)
		if err != nil {
			return fmt.Errorf("poll vector store: %w", err)
		}
		switch store.Status {
		case domain.VectorStoreStatusCompleted:
			return nil
		case domain.VectorStoreStatusFailed:
			return fmt.Errorf("vector store %s failed to index", storeID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// annotationRecords turns each annotated span into a citation record whose
// content is the slice of the accumulated answer at the reported offsets.
// The answer text is never rewritten; it must stay byte-identical to what
// was streamed.
func annotationRecords(answer []rune, annotations []annotationSpan) []domain.SupportingContentRecord {
	if len(annotations) == 0 {
		return nil
	}

	sorted := make([]annotationSpan, len(annotations))
	copy(sorted, annotations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var points []domain.SupportingContentRecord
	for _, a := range sorted {
		if a.start < 0 || a.end > len(answer) || a.start >= a.end {
			continue
		}
		points = append(points, domain.SupportingContentRecord{
			Title:      a.fileName,
			Content:    string(answer[a.start:a.end]),
			SourceType: "file",
			ID:         a.fileName,
		})
	}
	return points
}
