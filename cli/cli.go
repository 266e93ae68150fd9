package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"recstore/btree"
	"recstore/db"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

var (
	errColor     = color.New(color.FgRed)
	headingColor = color.New(color.FgCyan, color.Bold)
	keyColor     = color.New(color.FgYellow)
)

type Cli struct {
	scanner    *bufio.Scanner
	out        io.Writer
	db         *db.DB
	visualizer *btree.Visualizer
}

func NewCli(s *bufio.Scanner, out io.Writer, d *db.DB) *Cli {
	v := &btree.Visualizer{
		Tree: d.Tree(),
	}
	return &Cli{scanner: s, out: out, db: d, visualizer: v}
}

// Start reads commands until EXIT or the end of input.
func (c *Cli) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		if !c.processInput(c.scanner.Text()) {
			return
		}
		c.printPrompt()
	}
}

func (c *Cli) printHelp() {
	fmt.Fprint(c.out, `
Record store CLI

Available Commands:
  ADD <value>        Store a value under the next free key
  SET <key> <value>  Store a value under the given key, replacing any existing record
  EDIT <key> <value> Change the value of an existing record
  GET <key>          Show the record stored under key
  DEL <key>          Remove the record stored under key
  LIST               Show all records in key order
  TREE               Show the layout of the B-tree
  STATS              Show tree statistics
  HELP               Show this help
  EXIT               Terminate this session
`)
}

func (c *Cli) printPrompt() {
	fmt.Fprint(c.out, "> ")
}

func (c *Cli) printError(format string, args ...interface{}) {
	errColor.Fprintf(c.out, format+"\n", args...)
}

func (c *Cli) printRecord(r *btree.Record) {
	keyColor.Fprintf(c.out, "%d", r.Key())
	fmt.Fprintf(c.out, "\t%s\n", r.Value())
}

// processInput runs one command line and reports whether the session continues.
func (c *Cli) processInput(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return true
	}
	command := strings.ToLower(fields[0])
	switch command {
	default:
		c.printError("Unknown command \"%s\"", command)
	case "add":
		c.processAddCommand(fields[1:])
	case "set":
		c.processSetCommand(fields[1:])
	case "edit":
		c.processEditCommand(fields[1:])
	case "get":
		c.processGetCommand(fields[1:])
	case "del":
		c.processDeleteCommand(fields[1:])
	case "list":
		c.processListCommand()
	case "tree":
		headingColor.Fprintln(c.out, "B-Tree")
		fmt.Fprintln(c.out, c.visualizer.Visualize())
	case "stats":
		c.processStatsCommand()
	case "help":
		c.printHelp()
	case "exit":
		return false
	}
	return true
}

func (c *Cli) parseKey(arg string) (int, bool) {
	key, err := strconv.Atoi(arg)
	if err != nil {
		c.printError("Invalid key %q.", arg)
		return 0, false
	}
	return key, true
}

func (c *Cli) report(err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.printError("Key not found.")
	default:
		c.printError("Error: %v", err)
	}
}

func (c *Cli) processAddCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: ADD <value>")
		return
	}
	r, err := c.db.Add(strings.Join(args, " "))
	if err != nil {
		c.report(err)
		return
	}
	c.printRecord(r)
}

func (c *Cli) processSetCommand(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: SET <key> <value>")
		return
	}
	key, ok := c.parseKey(args[0])
	if !ok {
		return
	}
	if err := c.db.Put(key, strings.Join(args[1:], " ")); err != nil {
		c.report(err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Cli) processEditCommand(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: EDIT <key> <value>")
		return
	}
	key, ok := c.parseKey(args[0])
	if !ok {
		return
	}
	if err := c.db.Edit(key, strings.Join(args[1:], " ")); err != nil {
		c.report(err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Cli) processGetCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: GET <key>")
		return
	}
	key, ok := c.parseKey(args[0])
	if !ok {
		return
	}
	r, err := c.db.Get(key)
	if err != nil {
		c.report(err)
		return
	}
	c.printRecord(r)
}

func (c *Cli) processDeleteCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: DEL <key>")
		return
	}
	key, ok := c.parseKey(args[0])
	if !ok {
		return
	}
	if err := c.db.Delete(key); err != nil {
		c.report(err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Cli) processListCommand() {
	records := c.db.List()
	if len(records) == 0 {
		fmt.Fprintln(c.out, "No records.")
		return
	}
	for _, r := range records {
		c.printRecord(r)
	}
}

func (c *Cli) processStatsCommand() {
	s := c.db.Tree().Stats()
	headingColor.Fprintln(c.out, "Stats")
	fmt.Fprintf(c.out, "degree:   %d\n", c.db.Tree().Degree())
	fmt.Fprintf(c.out, "records:  %d\n", s.Records)
	fmt.Fprintf(c.out, "height:   %d\n", s.Height)
	fmt.Fprintf(c.out, "internal: %d\n", s.InternalNodes)
	fmt.Fprintf(c.out, "leaves:   %d\n", s.LeafNodes)
}
