package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jobprep/interviewd/internal/evaluation"
	"github.com/jobprep/interviewd/internal/session"
)

// NewMCPServer creates an MCP server exposing interview sessions as tools,
// so agent frontends can drive an interview without the REST surface.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"interviewd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("interviewd runs AI-driven mock interview sessions grounded in a resume and a job description."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List interview sessions for a user, newest first."),
			mcp.WithString("email", mcp.Description("User email"), mcp.Required()),
		),
		mcpListSessions(deps),
	)

	s.AddTool(
		mcp.NewTool("start_interview",
			mcp.WithDescription("Start an interview session: returns the greeting and the first question."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpStartInterview(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_answer",
			mcp.WithDescription("Submit an answer to the current question and receive feedback plus the next question."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The candidate's answer"), mcp.Required()),
		),
		mcpSubmitAnswer(deps),
	)

	s.AddTool(
		mcp.NewTool("get_summary",
			mcp.WithDescription("Fetch the final summary for a completed interview session."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpGetSummary(deps),
	)

	s.AddTool(
		mcp.NewTool("run_evaluation",
			mcp.WithDescription("Audit a session's generated output: question grounding, hallucinations, scoring consistency, and feedback quality."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpRunEvaluation(deps),
	)

	return s
}

func mcpListSessions(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		email, err := req.RequireString("email")
		if err != nil {
			return mcpError("email is required"), nil
		}

		metas, err := deps.Manager.List(email)
		if err != nil {
			return mcpError(fmt.Sprintf("listing sessions: %v", err)), nil
		}
		if metas == nil {
			metas = []session.Meta{}
		}

		out, err := json.Marshal(metas)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding sessions: %v", err)), nil
		}
		return mcpText(string(out)), nil
	}
}

func mcpStartInterview(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		result, err := deps.Manager.Start(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("starting interview: %v", err)), nil
		}
		out, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcpText(string(out)), nil
	}
}

func mcpSubmitAnswer(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}

		result, err := deps.Manager.SubmitAnswer(ctx, id, answer)
		if err != nil {
			return mcpError(fmt.Sprintf("submitting answer: %v", err)), nil
		}
		out, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcpText(string(out)), nil
	}
}

func mcpGetSummary(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		doc, err := deps.Manager.Summarize(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("summarizing session: %v", err)), nil
		}
		return mcpText(string(doc)), nil
	}
}

func mcpRunEvaluation(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		s, err := deps.Manager.Get(id)
		if err != nil {
			return mcpError(fmt.Sprintf("loading session: %v", err)), nil
		}

		report := deps.Harness.Evaluate(ctx, evaluation.Input{
			SessionID:  s.ID,
			ResumeText: s.Source.ResumeText,
			JDText:     s.Source.JDText,
			Transcript: s.Transcript,
		})

		doc, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding report: %v", err)), nil
		}
		if err := deps.Store.SaveEvaluation(id, doc); err != nil {
			return mcpError(fmt.Sprintf("persisting report: %v", err)), nil
		}
		return mcpText(string(doc)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
