package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"ramadanprep/audio"
	"ramadanprep/core"
	"ramadanprep/models"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
)

// CLIHttp is the CLI for HTTP client mode
type CLIHttp struct {
	rl      *readline.Instance
	running bool
	client  *Client
}

// NewCLIHttp creates a new HTTP client CLI instance
func NewCLIHttp(serverURL string) (*CLIHttp, error) {
	client := NewClient(serverURL)

	if err := client.HealthCheck(); err != nil {
		return nil, fmt.Errorf("cannot connect to server: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("help"),
			readline.PcItem("log"),
			readline.PcItem("logs"),
			readline.PcItem("stats"),
			readline.PcItem("insight", readline.PcItem("refresh")),
			readline.PcItem("prep", readline.PcItem("refresh")),
			readline.PcItem("transcribe"),
			readline.PcItem("reset"),
			readline.PcItem("errors", readline.PcItem("clear")),
			readline.PcItem("status"),
			readline.PcItem("coach", readline.PcItem("stop")),
			readline.PcItem("servers", readline.PcItem("add"), readline.PcItem("use"), readline.PcItem("rm")),
			readline.PcItem("clear"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &CLIHttp{
		rl:      rl,
		running: true,
		client:  client,
	}, nil
}

// Start runs the CLI loop
func (c *CLIHttp) Start() {
	defer c.rl.Close()
	c.printWelcome()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println("\n⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully.")
				continue
			}
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		c.handleCommand(input)
	}
}

func (c *CLIHttp) printWelcome() {
	PrintBanner("RamadanPrep - CLI Mode (HTTP Client)")
	fmt.Printf("\nConnected to: %s\n", c.client.baseURL)
	fmt.Println("Type 'help' for available commands")
}

// handleCommand routes user commands
func (c *CLIHttp) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "log", "add":
		c.addLog()
	case "logs", "ls":
		c.listLogs()
	case "stats", "dashboard":
		c.showStats()
	case "insight", "insights":
		c.showInsight(len(args) > 0 && args[0] == "refresh")
	case "prep", "countdown":
		c.showPrep(len(args) > 0 && args[0] == "refresh")
	case "transcribe":
		if len(args) < 1 {
			fmt.Println("Usage: transcribe <audio-file>")
			return
		}
		c.transcribe(strings.Join(args, " "))
	case "reset":
		c.resetLogs()
	case "errors":
		c.handleErrorsCommand(args)
	case "status", "st":
		c.showStatus()
	case "coach":
		c.handleCoachCommand(args)
	case "servers", "server":
		c.handleServersCommand(args)
	case "clear":
		c.clearScreen()
	case "exit", "quit", "q":
		c.handleExit()
	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

func (c *CLIHttp) showHelp() {
	fmt.Println()
	PrintBanner("Available Commands")
	fmt.Println()

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"DAILY LOG:", ""},
		{"log", "Record today's log (interactive)"},
		{"logs", "List all logs"},
		{"stats", "Show dashboard totals and the last 7 days"},
		{"reset", "Delete every log and the cached insight"},
		{"", ""},
		{"AI:", ""},
		{"insight [refresh]", "Show the AI insight, or recompute it now"},
		{"prep [refresh]", "Show the countdown and preparation tips"},
		{"transcribe <file>", "Transcribe a recorded reflection (wav, webm, ogg, mp3, pcm)"},
		{"", ""},
		{"SYSTEM:", ""},
		{"status", "Show server health and voice coach sessions"},
		{"coach stop <id>", "End a voice coach session"},
		{"errors [clear]", "Show or clear recent AI/storage errors"},
		{"servers [add|use|rm]", "Manage saved servers"},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if cmd[0] != "" {
			fmt.Printf("  %-30s %s\n", cmd[0], cmd[1])
		} else {
			fmt.Println()
		}
	}
}

// addLog collects a daily log interactively
func (c *CLIHttp) addLog() {
	fmt.Println()
	PrintBanner("Record Daily Log")
	fmt.Println("\nPress Enter to accept defaults, Ctrl+C to cancel")

	req, ok := c.readLogForm()
	if !ok {
		fmt.Println("\n❌ Operation cancelled")
		return
	}

	entry, err := c.client.CreateLog(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("\n✓ Log saved (%s, %d pages, %d/5 prayers)\n", formatLogDate(entry.Date), entry.QuranPages, entry.PrayerCount())
	fmt.Println("  Insights will refresh in the background. Use 'insight' to see them.")
}

func (c *CLIHttp) readLogForm() (models.DailyLogCreate, bool) {
	var req models.DailyLogCreate

	date, cancelled := c.readInputWithCancel("Date (YYYY-MM-DD)", time.Now().Format("2006-01-02"))
	if cancelled {
		return req, false
	}
	req.Date = date

	pages, ok := c.readInt("Quran pages read", 0)
	if !ok {
		return req, false
	}
	req.QuranPages = pages

	prayers, cancelled := c.readInputWithCancel("Prayers performed (comma separated, 'all' or 'none')", "none")
	if cancelled {
		return req, false
	}
	req.Prayers = parsePrayerList(prayers)

	if req.DhikrCount, ok = c.readInt("Dhikr count", 0); !ok {
		return req, false
	}

	sleepStr, cancelled := c.readInputWithCancel("Sleep hours", strconv.FormatFloat(models.DefaultSleepHours, 'f', -1, 64))
	if cancelled {
		return req, false
	}
	if sleep, err := strconv.ParseFloat(sleepStr, 64); err == nil {
		req.SleepHours = &sleep
	}

	if req.ExerciseMinutes, ok = c.readInt("Exercise minutes", 0); !ok {
		return req, false
	}

	hydration, ok := c.readInt("Hydration (ml)", models.DefaultHydrationMl)
	if !ok {
		return req, false
	}
	req.HydrationMl = &hydration

	if req.KindnessNote, cancelled = c.readInputWithCancel("Act of kindness", ""); cancelled {
		return req, false
	}
	if req.Reflection, cancelled = c.readInputWithCancel("Reflection", ""); cancelled {
		return req, false
	}
	return req, true
}

func (c *CLIHttp) readInt(prompt string, def int) (int, bool) {
	for {
		s, cancelled := c.readInputWithCancel(prompt, strconv.Itoa(def))
		if cancelled {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err == nil && n >= 0 {
			return n, true
		}
		fmt.Println("  Please enter a non-negative whole number.")
	}
}

// parsePrayerList accepts "all", "none" or a comma separated list of names
func parsePrayerList(s string) []string {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "all":
		return append([]string(nil), models.Prayers...)
	case "", "none", "-":
		return []string{}
	}
	return models.NormalizePrayers(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	}))
}

func (c *CLIHttp) listLogs() {
	logs, err := c.client.ListLogs()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(logs) == 0 {
		fmt.Println("No logs yet. Use 'log' to record today.")
		return
	}

	fmt.Println()
	PrintBanner(fmt.Sprintf("Total Logs: %d", len(logs)))
	fmt.Println()

	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			formatLogDate(l.Date),
			strconv.Itoa(l.QuranPages),
			fmt.Sprintf("%d/5", l.PrayerCount()),
			strconv.Itoa(l.DhikrCount),
			strconv.FormatFloat(l.SleepHours, 'f', -1, 64),
			strconv.Itoa(l.ExerciseMinutes),
			strconv.Itoa(l.HydrationMl),
			truncate(l.Reflection, 30),
		})
	}
	renderTable([]string{"Date", "Pages", "Prayers", "Dhikr", "Sleep", "Exercise", "Water ml", "Reflection"}, rows)
}

func (c *CLIHttp) showStats() {
	stats, err := c.client.Dashboard()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	PrintBanner("Dashboard")
	fmt.Println()
	printField("Total Quran pages", stats.TotalPages)
	printField("Average prayers", stats.AvgPrayersDisplay+" / 5")
	printField("Day streak", stats.DayStreak)
	printField("Total dhikr", stats.TotalDhikr)
	printField("Average sleep", fmt.Sprintf("%.1f h", stats.AvgSleepHours))
	printField("Exercise", fmt.Sprintf("%d min", stats.TotalExerciseMinutes))
	printField("Average hydration", fmt.Sprintf("%.0f ml", stats.AvgHydrationMl))

	if len(stats.Chart) == 0 {
		return
	}
	fmt.Println()
	rows := make([][]string, 0, len(stats.Chart))
	for _, p := range stats.Chart {
		bar := pagesBar(p.Pages)
		done := ""
		if p.Complete {
			done = "✓"
		}
		rows = append(rows, []string{p.Name, p.Date, bar + " " + strconv.Itoa(p.Pages), fmt.Sprintf("%d/5 %s", p.Prayers, done)})
	}
	renderTable([]string{"Day", "Date", "Quran pages", "Prayers"}, rows)
}

func (c *CLIHttp) showInsight(refresh bool) {
	var st *models.InsightState
	var err error
	if refresh {
		fmt.Println("Analysing logs...")
		st, err = c.client.RefreshInsights()
	} else {
		st, err = c.client.Insights()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if st.Insight == nil {
		if st.Pending {
			fmt.Println("Insight is being computed. Try again in a moment.")
		} else {
			fmt.Println("No insight yet. Record a log first.")
		}
		return
	}

	fmt.Println()
	PrintBanner("AI Insight: " + string(st.Insight.SpiritualLevel))
	fmt.Println()
	fmt.Printf("  %s\n\n", st.Insight.Summary)
	for _, s := range st.Insight.Suggestions {
		fmt.Printf("  • %s\n", s)
	}
	if st.Insight.Motivation != "" {
		fmt.Printf("\n  \"%s\"\n", st.Insight.Motivation)
	}
	if st.Pending {
		fmt.Println("\n  (an updated insight is being computed)")
	}
	if st.Fallback {
		fmt.Println("\n  (analysis was unavailable; see 'errors')")
	}
}

func (c *CLIHttp) showPrep(refresh bool) {
	info, err := c.client.Prep(refresh)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	PrintBanner(fmt.Sprintf("%d days until Ramadan (%s)", info.DaysRemaining, info.StartDate))
	fmt.Println()
	for i, tip := range info.Tips {
		fmt.Printf("  %d. %s\n", i+1, tip)
	}
	if len(info.Sources) > 0 {
		fmt.Println("\n  Sources:")
		for _, s := range info.Sources[:min(len(info.Sources), 3)] {
			fmt.Printf("  - %s (%s)\n", s.Title, s.URI)
		}
	}
}

func (c *CLIHttp) transcribe(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Transcribing...")
	res, err := c.client.Transcribe(data, mimeTypeForFile(path), "")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("\n%s\n", res.Text)
}

// mimeTypeForFile guesses the recording type from its extension
func mimeTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".pcm", ".raw":
		return audio.InputMIMEType
	default:
		return "audio/webm"
	}
}

func (c *CLIHttp) resetLogs() {
	answer := c.readInput("This deletes ALL logs and the insight. Type 'yes' to confirm", "no")
	if answer != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}
	if err := c.client.ResetLogs(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("✓ All logs cleared")
}

func (c *CLIHttp) handleErrorsCommand(args []string) {
	if len(args) > 0 && args[0] == "clear" {
		if err := c.client.ClearErrorLogs(); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("✓ Error logs cleared")
		return
	}

	logs, err := c.client.ErrorLogs()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(logs) == 0 {
		fmt.Println("No errors recorded.")
		return
	}

	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			l.Timestamp.Local().Format("01-02 15:04:05"),
			l.Level,
			l.Source,
			truncate(l.Message, 30),
			truncate(l.Detail, 40),
		})
	}
	renderTable([]string{"Time", "Level", "Source", "Message", "Detail"}, rows)
}

func (c *CLIHttp) showStatus() {
	health, err := c.client.Health()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println()
	printField("Server", c.client.baseURL)
	printField("Status", health["status"])
	printField("Version", health["version"])
	printField("Database", health["db_healthy"])
	printField("AI configured", health["ai_configured"])

	sessions, err := c.client.CoachSessions()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("\n  No active voice coach sessions.")
		return
	}
	fmt.Println()
	renderTable([]string{"Session", "Status", "Started", "Up", "Down", "Turns"}, sessionRows(sessions))
}

func sessionRows(sessions []core.SessionStats) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.Status,
			s.StartedAt.Local().Format("15:04:05"),
			formatBytes(s.BytesUp),
			formatBytes(s.BytesDown),
			strconv.FormatInt(s.Turns, 10),
		})
	}
	return rows
}

func (c *CLIHttp) handleCoachCommand(args []string) {
	if len(args) < 2 || args[0] != "stop" {
		fmt.Println("Usage: coach stop <session-id>")
		return
	}
	if err := c.client.StopCoachSession(args[1]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("✓ Coach session %s stopped\n", args[1])
}

func (c *CLIHttp) handleServersCommand(args []string) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Printf("Error loading CLI config: %v\n", err)
		return
	}

	if len(args) == 0 {
		rows := make([][]string, 0, len(cfg.Servers))
		for _, name := range cfg.ServerNames() {
			s := cfg.Servers[name]
			mark := ""
			if name == cfg.DefaultServer {
				mark = "*"
			}
			rows = append(rows, []string{mark, name, s.URL, s.Description})
		}
		renderTable([]string{"", "Name", "URL", "Description"}, rows)
		return
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			fmt.Println("Usage: servers add <name> <url> [description]")
			return
		}
		err = cfg.AddServer(args[1], args[2], strings.Join(args[3:], " "))
	case "use":
		if len(args) < 2 {
			fmt.Println("Usage: servers use <name>")
			return
		}
		if err = cfg.SetDefault(args[1]); err == nil {
			fmt.Println("Default server changed. Restart the CLI to connect to it.")
		}
	case "rm", "remove":
		if len(args) < 2 {
			fmt.Println("Usage: servers rm <name>")
			return
		}
		err = cfg.RemoveServer(args[1])
	default:
		fmt.Printf("Unknown servers command: %s\n", args[0])
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("✓ Saved")
}

func (c *CLIHttp) clearScreen() {
	fmt.Print("\033[H\033[2J")
}

// handleExit exits the CLI, offering to end running coach sessions
func (c *CLIHttp) handleExit() {
	sessions, err := c.client.CoachSessions()
	if err != nil || len(sessions) == 0 {
		fmt.Println("\nGoodbye!")
		c.running = false
		return
	}

	fmt.Printf("\n⚠ %d voice coach session(s) are active.\n", len(sessions))
	fmt.Println("\nOptions:")
	fmt.Println("  1. Exit directly (keep sessions running)")
	fmt.Println("  2. Stop all sessions and exit")
	fmt.Println("  0. Cancel (return to CLI)")

	switch c.readInput("\nYour choice", "1") {
	case "0":
		fmt.Println("Exit cancelled.")
	case "1":
		fmt.Println("\nGoodbye! (Sessions still running)")
		c.running = false
	case "2":
		for _, s := range sessions {
			if err := c.client.StopCoachSession(s.ID); err != nil {
				fmt.Printf("  Failed to stop %s: %v\n", s.ID, err)
			}
		}
		fmt.Println("\nGoodbye!")
		c.running = false
	default:
		fmt.Println("Invalid choice. Exit cancelled.")
	}
}

func (c *CLIHttp) readInput(prompt, defaultValue string) string {
	value, _ := c.readInputWithCancel(prompt, defaultValue)
	return value
}

// readInputWithCancel reads input and supports cancellation
func (c *CLIHttp) readInputWithCancel(prompt, defaultValue string) (string, bool) {
	if defaultValue != "" {
		c.rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, defaultValue))
	} else {
		c.rl.SetPrompt(fmt.Sprintf("%s: ", prompt))
	}

	line, err := c.rl.Readline()
	c.rl.SetPrompt("> ")

	if err != nil {
		if err == readline.ErrInterrupt {
			return "", true
		}
		return defaultValue, false
	}

	input := strings.TrimSpace(line)
	if input == "" && defaultValue != "" {
		return defaultValue, false
	}
	return input, false
}

func renderTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	table.Header(cells...)
	if err := table.Bulk(rows); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := table.Render(); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func formatLogDate(rfc string) string {
	t, err := time.Parse(time.RFC3339, rfc)
	if err != nil {
		return rfc
	}
	return t.Local().Format("Mon 2006-01-02")
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
