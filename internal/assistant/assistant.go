// Package assistant answers questions about the portfolio through a chat
// model and keeps the transcript.
package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/TamChouWeng/my-asset-sub000/internal/chatlog"
	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/render"
)

// Chat is one conversation with the model.
type Chat interface {
	Send(ctx context.Context, message string) (string, error)
}

// Client starts conversations.
type Client interface {
	Start(ctx context.Context, model, system string) (Chat, error)
}

const systemPrompt = `You are a personal finance assistant for a private asset ledger.
Answer questions about the user's portfolio using the summary below and the
available functions. Amounts are in %s unless stated otherwise. Be concise,
show figures with two decimals, and say so when the data cannot answer a
question. You do not give regulated investment advice.

Portfolio summary:
%s`

// Assistant is a chat session seeded with the dashboard of one currency.
type Assistant struct {
	chat      Chat
	model     string
	currency  string
	sessionID string
	root      string
	now       func() time.Time
}

// Start opens a chat on client seeded with the current dashboard. When root
// is not empty every exchange is appended to the project chat log.
func Start(ctx context.Context, client Client, modelName string, engine *derive.Engine, currency, root string) (*Assistant, error) {
	dash := engine.Dashboard(currency, derive.AllTypes)
	chat, err := client.Start(ctx, modelName, fmt.Sprintf(systemPrompt, dash.Currency, render.Summary(dash)))
	if err != nil {
		return nil, err
	}
	return &Assistant{
		chat:      chat,
		model:     modelName,
		currency:  dash.Currency,
		sessionID: uuid.NewString(),
		root:      root,
		now:       time.Now,
	}, nil
}

// SessionID identifies this conversation in the chat log.
func (a *Assistant) SessionID() string { return a.sessionID }

// Ask sends one question and returns the answer.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("empty question")
	}
	asked := a.now()
	answer, err := a.chat.Send(ctx, question)
	if err != nil {
		return "", fmt.Errorf("asking assistant: %w", err)
	}
	if a.root != "" {
		entries := []chatlog.Entry{
			a.entry(asked, chatlog.RoleUser, question),
			a.entry(a.now(), chatlog.RoleModel, answer),
		}
		if err := chatlog.Append(a.root, entries); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("writing chat log failed")
		}
	}
	return answer, nil
}

func (a *Assistant) entry(ts time.Time, role, msg string) chatlog.Entry {
	return chatlog.Entry{
		Timestamp: ts,
		SessionID: a.sessionID,
		Role:      role,
		Model:     a.model,
		Currency:  a.currency,
		Message:   msg,
	}
}

const prompt = "assist> "

// Run is the interactive loop. Queued prompts are answered first, then
// lines are read from r until EOF or "bye". Answers are passed to show.
func (a *Assistant) Run(ctx context.Context, w io.Writer, r io.Reader, show func(string) string, prompts ...string) error {
	in := bufio.NewReader(r)
	fmt.Fprintln(w, "Ask about your portfolio. Type 'bye' to exit.")
	for {
		fmt.Fprint(w, prompt)
		var input string
		if len(prompts) > 0 {
			input, prompts = prompts[0], prompts[1:]
			fmt.Fprintln(w, input)
		} else {
			line, err := in.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if err != nil && strings.TrimSpace(line) == "" {
				fmt.Fprintln(w)
				return nil
			}
			input = line
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "bye" {
			return nil
		}
		answer, err := a.Ask(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, show(answer))
	}
}

// Tools exposes the engine to the model as callable functions.
func Tools(engine *derive.Engine) []Tool {
	return []Tool{
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "get_dashboard",
				Description: "Totals, top asset and allocation of the portfolio for one currency and optional asset type.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"currency": {Type: genai.TypeString, Description: "ISO currency code, e.g. MYR."},
						"type":     {Type: genai.TypeString, Description: "Asset type filter, or All."},
					},
					Required: []string{"currency"},
				},
			},
			Call: func(_ context.Context, args map[string]any) (map[string]any, error) {
				cur, _ := args["currency"].(string)
				filter := derive.AllTypes
				if s, _ := args["type"].(string); s != "" && !strings.EqualFold(s, string(derive.AllTypes)) {
					t, ok := model.ParseAssetType(s)
					if !ok {
						return nil, fmt.Errorf("unknown asset type %q", s)
					}
					filter = t
				}
				return map[string]any{"output": render.Dashboard(engine.Dashboard(cur, filter))}, nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "list_fixed_deposits",
				Description: "Fixed deposits for one currency with rates, maturity dates and expected interest.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"currency": {Type: genai.TypeString, Description: "ISO currency code, e.g. MYR."},
					},
					Required: []string{"currency"},
				},
			},
			Call: func(_ context.Context, args map[string]any) (map[string]any, error) {
				cur, _ := args["currency"].(string)
				return map[string]any{"output": render.FixedDeposits(engine.FixedDeposits(cur, derive.NewView(derive.ViewFixedDeposit, 100)))}, nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "property_cash_flow",
				Description: "Invested, returned and net cash flow of property records, optionally for one property.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"currency": {Type: genai.TypeString, Description: "ISO currency code, e.g. MYR."},
						"property": {Type: genai.TypeString, Description: "Property name, empty for all."},
					},
					Required: []string{"currency"},
				},
			},
			Call: func(_ context.Context, args map[string]any) (map[string]any, error) {
				cur, _ := args["currency"].(string)
				name, _ := args["property"].(string)
				return map[string]any{"output": render.Property(engine.Property(cur, name, derive.NewView(derive.ViewProperty, 100)))}, nil
			},
		},
	}
}
