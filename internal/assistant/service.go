package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/platform/apperr"
	"venue_crm_backend/platform/logger"
)

// contextLeadLimit caps how many leads go into the prompt.
const contextLeadLimit = 50

// LeadSource supplies the caller-scoped pipeline snapshot for the prompt.
type LeadSource interface {
	ListLeads(ctx context.Context, caller domain.Caller, stages []string, limit int) ([]repository.Lead, error)
}

type Service struct {
	gen   Generator
	leads LeadSource
	log   *logger.Logger
}

func NewService(gen Generator, leads LeadSource, log *logger.Logger) *Service {
	return &Service{gen: gen, leads: leads, log: log}
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.gen != nil
}

// Answer responds to a question about the caller's pipeline. The lead list is
// fetched through the same scoped read path the REST API uses, so the prompt
// only ever contains leads the caller is allowed to see.
func (s *Service) Answer(ctx context.Context, caller domain.Caller, question string) (string, error) {
	if !s.Enabled() {
		return "", apperr.NotFound("assistant is not configured")
	}

	leads, err := s.leads.ListLeads(ctx, caller, nil, contextLeadLimit)
	if err != nil {
		return "", err
	}

	prompt := buildPrompt(caller, question, leads, time.Now())

	answer, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.log.Error("assistant generation failed", "error", err)
		return "", apperr.Wrap(apperr.KindInternal, "assistant is temporarily unavailable", err)
	}
	return strings.TrimSpace(answer), nil
}

func buildPrompt(caller domain.Caller, question string, leads []repository.Lead, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are the assistant for a venue booking team. ")
	b.WriteString("Answer the user's question using only the pipeline data below. ")
	b.WriteString("Be concise and concrete. If the data does not contain the answer, say so.\n\n")
	fmt.Fprintf(&b, "Today: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "User: %s (role %s)\n\n", caller.Name, caller.Role)

	b.WriteString("Pipeline:\n")
	if len(leads) == 0 {
		b.WriteString("(no leads visible)\n")
	}
	for _, lead := range leads {
		fmt.Fprintf(&b, "- %s | stage=%s | source=%s | assigned=%s", lead.Name, lead.Stage, lead.Source, lead.Manager)
		if lead.EventDate != nil {
			fmt.Fprintf(&b, " | event=%s", lead.EventDate.Format("2006-01-02"))
		}
		if lead.LastContactedAt != nil {
			fmt.Fprintf(&b, " | last_contact=%s", lead.LastContactedAt.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
