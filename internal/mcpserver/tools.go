package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the fraudwatch MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeTransaction = mcp.NewTool("analyze_transaction",
	mcp.WithDescription(
		"Score a card transaction for fraud risk with the rule-based detector. "+
			"Returns a risk score in [0,1], any anomaly rules that fired, and a "+
			"BLOCK / REVIEW / APPROVE recommendation."),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Transaction amount in dollars (e.g. 249.99)")),
	mcp.WithString("merchant_type",
		mcp.Description("Merchant category (grocery, gas, restaurant, online, atm, pharmacy, entertainment, travel). "+
			"Unlisted categories score at the default risk.")),
	mcp.WithString("location",
		mcp.Description("Two-letter US state code (e.g. 'NY')")),
	mcp.WithString("time_of_day",
		mcp.Description("Time-of-day bucket"),
		mcp.Enum("morning", "afternoon", "evening", "night")),
	mcp.WithString("card_type",
		mcp.Description("Card type"),
		mcp.Enum("debit", "credit", "prepaid")),
)

var ToolGenerateTransactions = mcp.NewTool("generate_transactions",
	mcp.WithDescription(
		"Draw synthetic card transactions from the generator. "+
			"Without a profile roughly 5% are labelled fraudulent; with a profile "+
			"every transaction follows that user archetype."),
	mcp.WithNumber("count",
		mcp.Description("Number of transactions to generate (default 10, max 1000)")),
	mcp.WithString("profile",
		mcp.Description("Restrict to one user archetype"),
		mcp.Enum("normal_user", "heavy_user", "business_user", "suspicious_user")),
)

var ToolGetDetectionStats = mcp.NewTool("get_detection_stats",
	mcp.WithDescription(
		"Get running detector statistics: transactions scored, fraud detected and rates. "+
			"The accuracy figures it reports are synthetic placeholders, not measurements."),
)

var ToolGetMerchantStatistics = mcp.NewTool("get_merchant_statistics",
	mcp.WithDescription(
		"List the merchant categories the generator knows with their typical amount ranges and risk tiers."),
)

var ToolGetRecentAnalyses = mcp.NewTool("get_recent_analyses",
	mcp.WithDescription(
		"List the most recently scored transactions, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of analyses to return (default 10)")),
)

var ToolSimulateBatch = mcp.NewTool("simulate_batch",
	mcp.WithDescription(
		"Generate and score a batch of synthetic transactions server-side. "+
			"Returns the action mix and how decisions compare with the generator's fraud labels."),
	mcp.WithNumber("count",
		mcp.Description("Batch size (default 20, max 500)")),
)
