package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/fraudwatch/internal/generator"
	"github.com/mbd888/fraudwatch/internal/risk"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeTransaction scores one transaction.
func (h *Handlers) HandleAnalyzeTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	amount, ok := getFloat(args, "amount")
	if !ok {
		return mcp.NewToolResultError("amount is required and must be a number"), nil
	}

	tx := transaction.Transaction{
		Amount:       amount,
		MerchantType: getString(args, "merchant_type", "merchant"),
		Location:     getString(args, "location"),
		TimeOfDay:    getString(args, "time_of_day"),
		CardType:     getString(args, "card_type"),
	}

	raw, err := h.client.Analyze(ctx, tx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze transaction: %v", err)), nil
	}

	text, err := formatAnalysis(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analysis: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGenerateTransactions draws synthetic transactions.
func (h *Handlers) HandleGenerateTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", generator.DefaultBatchSize)
	if count < 1 || count > generator.MaxBatchSize {
		return mcp.NewToolResultError(fmt.Sprintf("count must be between 1 and %d", generator.MaxBatchSize)), nil
	}
	profile := req.GetString("profile", "")

	raw, err := h.client.GenerateTransactions(ctx, count, profile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate transactions: %v", err)), nil
	}

	text, err := formatTransactions(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse transactions: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetDetectionStats reports the detector's counters.
func (h *Handlers) HandleGetDetectionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get stats: %v", err)), nil
	}

	text, err := formatStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse stats: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetMerchantStatistics lists merchant categories.
func (h *Handlers) HandleGetMerchantStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.MerchantStatistics(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get merchant statistics: %v", err)), nil
	}

	text, err := formatMerchants(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse merchant statistics: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetRecentAnalyses lists recent decisions.
func (h *Handlers) HandleGetRecentAnalyses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	if limit < 1 || limit > risk.DefaultHistorySize {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", risk.DefaultHistorySize)), nil
	}

	raw, err := h.client.RecentAnalyses(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list analyses: %v", err)), nil
	}

	text, err := formatRecent(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analyses: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleSimulateBatch runs a server-side batch simulation.
func (h *Handlers) HandleSimulateBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", 20)
	if count < 1 || count > 500 {
		return mcp.NewToolResultError("count must be between 1 and 500"), nil
	}

	raw, err := h.client.SimulateBatch(ctx, count)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run simulation: %v", err)), nil
	}

	text, err := formatSimulation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse simulation: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// --- formatting ---

type analyzeResponse struct {
	Transaction    transaction.Transaction `json:"transaction"`
	Analysis       risk.Prediction         `json:"analysis"`
	Recommendation string                  `json:"recommendation"`
	AlertLevel     risk.AlertLevel         `json:"alert_level"`
}

func formatAnalysis(raw json.RawMessage) (string, error) {
	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Fraud Analysis:\n")
	fmt.Fprintf(&sb, "  Transaction: %s\n", describeTransaction(resp.Transaction))
	fmt.Fprintf(&sb, "  Risk score:  %.3f\n", resp.Analysis.RiskScore)
	fmt.Fprintf(&sb, "  Confidence:  %.3f\n", resp.Analysis.Confidence)
	if resp.Analysis.IsFraud() {
		sb.WriteString("  Verdict:     FRAUD\n")
	} else {
		sb.WriteString("  Verdict:     normal\n")
	}
	if len(resp.Analysis.Anomalies) > 0 {
		fmt.Fprintf(&sb, "  Anomalies:   %s\n", strings.Join(resp.Analysis.Anomalies, ", "))
	}
	fmt.Fprintf(&sb, "  Alert level: %s\n", resp.AlertLevel)
	fmt.Fprintf(&sb, "\n%s", resp.Recommendation)
	return sb.String(), nil
}

func describeTransaction(tx transaction.Transaction) string {
	parts := []string{fmt.Sprintf("$%.2f", tx.Amount)}
	for _, p := range []string{tx.MerchantType, tx.Location, tx.TimeOfDay, tx.CardType} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

func formatTransactions(raw json.RawMessage) (string, error) {
	var resp struct {
		Transactions []transaction.Transaction `json:"transactions"`
		Profile      string                    `json:"profile"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	if resp.Profile != "" {
		fmt.Fprintf(&sb, "Generated %d transaction(s) for %s:\n\n", len(resp.Transactions), resp.Profile)
	} else {
		fmt.Fprintf(&sb, "Generated %d transaction(s):\n\n", len(resp.Transactions))
	}

	labelled := 0
	for i, tx := range resp.Transactions {
		fmt.Fprintf(&sb, "%d. %s", i+1, describeTransaction(tx))
		if tx.UserProfile == transaction.ProfileFraudulent {
			labelled++
			sb.WriteString(" [fraudulent")
			if tx.FraudPattern != "" {
				sb.WriteString(": " + tx.FraudPattern)
			}
			sb.WriteString("]")
		}
		sb.WriteString("\n")
	}
	if labelled > 0 {
		fmt.Fprintf(&sb, "\n%d labelled fraudulent by the generator\n", labelled)
	}
	return sb.String(), nil
}

func formatStats(raw json.RawMessage) (string, error) {
	var resp struct {
		ModelMetrics     risk.SimulatedMetrics `json:"model_metrics"`
		TransactionStats struct {
			Total      int64   `json:"total_transactions"`
			Fraud      int64   `json:"fraud_detected"`
			Normal     int64   `json:"normal_transactions"`
			FraudRate  float64 `json:"fraud_rate"`
			NormalRate float64 `json:"normal_rate"`
		} `json:"transaction_stats"`
		FraudThreshold  float64 `json:"fraud_threshold"`
		Status          string  `json:"status"`
		DetectionMethod string  `json:"detection_method"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	ts := resp.TransactionStats
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detector: %s (%s, threshold %.2f)\n", resp.DetectionMethod, resp.Status, resp.FraudThreshold)
	fmt.Fprintf(&sb, "  Transactions: %d\n", ts.Total)
	fmt.Fprintf(&sb, "  Fraud:        %d (%.2f%%)\n", ts.Fraud, ts.FraudRate)
	fmt.Fprintf(&sb, "  Normal:       %d (%.2f%%)\n", ts.Normal, ts.NormalRate)
	m := resp.ModelMetrics
	fmt.Fprintf(&sb, "  Accuracy %.2f | Precision %.2f | Recall %.2f", m.Accuracy, m.Precision, m.Recall)
	if m.Synthetic {
		sb.WriteString(" (synthetic placeholders)")
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

func formatMerchants(raw json.RawMessage) (string, error) {
	var stats generator.MerchantStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return "", err
	}

	names := append([]string(nil), stats.MerchantTypes...)
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d merchant type(s):\n", len(names))
	for _, name := range names {
		r := stats.AmountRanges[name]
		fmt.Fprintf(&sb, "  %-10s $%.2f - $%.2f  risk: %s\n", name, r.Min, r.Max, stats.RiskLevels[name])
	}
	return sb.String(), nil
}

func formatRecent(raw json.RawMessage) (string, error) {
	var resp struct {
		Analyses []risk.Analysis `json:"analyses"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Analyses) == 0 {
		return "No transactions analyzed yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d recent analysis(es), newest first:\n\n", len(resp.Analyses))
	for i, a := range resp.Analyses {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, describeTransaction(a.Transaction))
		fmt.Fprintf(&sb, "   %s | score %.3f | %s\n", a.Recommendation.Action, a.Prediction.RiskScore, a.Prediction.EvaluatedAt.Format("15:04:05"))
	}
	return sb.String(), nil
}

func formatSimulation(raw json.RawMessage) (string, error) {
	var resp struct {
		Summary struct {
			Count         int                 `json:"count"`
			FraudDetected int                 `json:"fraud_detected"`
			FraudRate     float64             `json:"fraud_rate"`
			MeanRiskScore float64             `json:"mean_risk_score"`
			Actions       map[risk.Action]int `json:"actions"`
			Agreement     struct {
				TruePositives  int `json:"true_positives"`
				FalsePositives int `json:"false_positives"`
				TrueNegatives  int `json:"true_negatives"`
				FalseNegatives int `json:"false_negatives"`
			} `json:"agreement"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	s := resp.Summary
	var sb strings.Builder
	fmt.Fprintf(&sb, "Simulated %d transaction(s)\n", s.Count)
	fmt.Fprintf(&sb, "  Flagged: %d (%.2f%%), mean risk score %.3f\n", s.FraudDetected, s.FraudRate, s.MeanRiskScore)
	for _, action := range []risk.Action{risk.ActionBlock, risk.ActionReview, risk.ActionApprove} {
		fmt.Fprintf(&sb, "  %-8s %d\n", action, s.Actions[action])
	}
	a := s.Agreement
	fmt.Fprintf(&sb, "Against generator labels: TP %d | FP %d | TN %d | FN %d\n",
		a.TruePositives, a.FalsePositives, a.TrueNegatives, a.FalseNegatives)
	return sb.String(), nil
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return n, true
			case int:
				return float64(n), true
			}
		}
	}
	return 0, false
}
