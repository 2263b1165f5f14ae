package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finmate/internal/ai"
	"finmate/internal/core"
	"finmate/internal/models"
)

const (
	maxQuestionLength  = 512
	adviceHistoryLimit = 20
	promptTransactions = 20
	titleLength        = 50
)

// AdviceService turns a user's question plus their financial picture
// into advice, preferring the provider chain and falling back to a
// templated answer when no provider responds.
type AdviceService struct {
	db            *gorm.DB
	transactions  *TransactionService
	chain         *ai.Chain
	assistantName string
}

func NewAdviceService(db *gorm.DB, transactions *TransactionService, chain *ai.Chain, assistantName string) *AdviceService {
	return &AdviceService{
		db:            db,
		transactions:  transactions,
		chain:         chain,
		assistantName: assistantName,
	}
}

// GenerateAdvice answers a question in the context of the user's
// finances and records the exchange. An empty conversation ID starts a
// new conversation.
func (s *AdviceService) GenerateAdvice(ctx context.Context, userID uint, question, conversationID string) (*models.AdviceEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, core.ErrEmptyQuestion
	}
	if len(question) > maxQuestionLength {
		return nil, core.ErrQuestionTooLong
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	} else if _, err := uuid.Parse(conversationID); err != nil {
		return nil, core.ErrInvalidConversationID
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := time.Now()
	insight, err := s.transactions.MonthlyInsight(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	systemPrompt := s.systemPrompt()
	userPrompt, err := s.buildUserPrompt(ctx, &user, insight, question, now)
	if err != nil {
		return nil, err
	}

	answer, provider, err := s.chain.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		slog.WarnContext(ctx, "All advice providers failed, using fallback",
			"user_id", userID, "error", err)
		answer = ai.Fallback(s.assistantName, user.FullName, question, insight.SummaryText())
		provider = "fallback"
	}
	answer = fmt.Sprintf("[%s] %s", s.assistantName, answer)

	entry := &models.AdviceEntry{
		UserID:         userID,
		ConversationID: conversationID,
		Prompt:         question,
		Response:       answer,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("save advice entry: %w", err)
	}

	slog.InfoContext(ctx, "Generated advice",
		"user_id", userID,
		"conversation_id", conversationID,
		"provider", provider)

	return entry, nil
}

func (s *AdviceService) systemPrompt() string {
	return fmt.Sprintf(
		"You are %s, a concise and practical personal finance assistant. "+
			"Answer using only the financial data provided. Give concrete, "+
			"actionable suggestions and keep the tone friendly.",
		s.assistantName)
}

// buildUserPrompt assembles the question with the user's financial
// context. Sections with no data are left out so the model never sees
// empty tables.
func (s *AdviceService) buildUserPrompt(ctx context.Context, user *models.User, insight core.MonthlyInsight, question string, now time.Time) (string, error) {
	var b strings.Builder

	if user.FullName != "" {
		fmt.Fprintf(&b, "User: %s\n", user.FullName)
	}
	fmt.Fprintf(&b, "Preferred currency: %s\n", user.Currency)
	if user.MonthlyIncome.IsPositive() {
		fmt.Fprintf(&b, "Declared monthly income: %s\n", user.MonthlyIncome.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nCurrent month:\n%s\n", insight.SummaryText())

	allIncome, allExpense, err := s.transactions.AllTimeSummary(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if !allIncome.IsZero() || !allExpense.IsZero() {
		fmt.Fprintf(&b, "\nAll time: income %s, expenses %s, balance %s\n",
			allIncome.StringFixed(2),
			allExpense.StringFixed(2),
			allIncome.Sub(allExpense).StringFixed(2))
	}

	breakdown, err := s.transactions.MonthlyBreakdown(ctx, user.ID, now, breakdownMonths)
	if err != nil {
		return "", err
	}
	var monthLines []string
	for _, m := range breakdown {
		if m.Income.IsZero() && m.Expense.IsZero() {
			continue
		}
		monthLines = append(monthLines,
			fmt.Sprintf("- %s: income %s, expenses %s", m.Month, m.Income.StringFixed(2), m.Expense.StringFixed(2)))
	}
	if len(monthLines) > 0 {
		fmt.Fprintf(&b, "\nLast %d months:\n%s\n", breakdownMonths, strings.Join(monthLines, "\n"))
	}

	recent, err := s.transactions.ListTransactions(ctx, user.ID, ListFilter{Limit: promptTransactions})
	if err != nil {
		return "", err
	}
	if len(recent) > 0 {
		fmt.Fprintf(&b, "\nRecent transactions:\n")
		for _, t := range recent {
			fmt.Fprintf(&b, "- %s %s %s %s (%s)\n",
				t.OccurredAt.Format("2006-01-02"), t.Type, t.Amount.StringFixed(2), t.Currency, t.Category)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String(), nil
}

// ListAdvice returns the user's most recent advice entries.
func (s *AdviceService) ListAdvice(ctx context.Context, userID uint, limit int) ([]models.AdviceEntry, error) {
	if limit <= 0 || limit > adviceHistoryLimit {
		limit = adviceHistoryLimit
	}

	var entries []models.AdviceEntry
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list advice entries: %w", err)
	}
	return entries, nil
}

// ConversationSummary is one row of the conversation list: the first
// prompt as a title, the entry count and the time of the last message.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	MessageCount   int       `json:"message_count"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

// ListConversations groups the user's advice entries by conversation,
// most recently active first.
func (s *AdviceService) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	var entries []models.AdviceEntry
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load advice entries: %w", err)
	}

	byID := make(map[string]*ConversationSummary)
	order := make([]string, 0)
	for _, entry := range entries {
		summary, ok := byID[entry.ConversationID]
		if !ok {
			summary = &ConversationSummary{
				ConversationID: entry.ConversationID,
				Title:          conversationTitle(entry.Prompt),
			}
			byID[entry.ConversationID] = summary
			order = append(order, entry.ConversationID)
		}
		summary.MessageCount++
		if entry.CreatedAt.After(summary.LastMessageAt) {
			summary.LastMessageAt = entry.CreatedAt
		}
	}

	summaries := make([]ConversationSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byID[id])
	}
	// Most recently active conversation first.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries, nil
}

func conversationTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= titleLength {
		return prompt
	}
	return string(runes[:titleLength]) + "..."
}

// GetConversation returns one conversation's entries in order.
func (s *AdviceService) GetConversation(ctx context.Context, userID uint, conversationID string) ([]models.AdviceEntry, error) {
	var entries []models.AdviceEntry
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if len(entries) == 0 {
		return nil, core.ErrNotFound
	}
	return entries, nil
}

// DeleteConversation removes one conversation and all its entries.
func (s *AdviceService) DeleteConversation(ctx context.Context, userID uint, conversationID string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Delete(&models.AdviceEntry{})
	if result.Error != nil {
		return fmt.Errorf("delete conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ClearAdvice removes the user's entire advice history.
func (s *AdviceService) ClearAdvice(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Delete(&models.AdviceEntry{}).Error; err != nil {
		return fmt.Errorf("clear advice history: %w", err)
	}
	return nil
}
