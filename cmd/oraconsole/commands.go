package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"

	"gorm.io/driver/oracle"
	"gorm.io/driver/oracle/quoting"
)

// pingCommand checks that a session can be opened and is alive.
type pingCommand struct {
	g *globalFlags
}

func (cmd *pingCommand) run(c *kingpin.ParseContext) error {
	ctx := context.Background()
	conn := cmd.g.open(ctx)
	defer conn.Logoff(ctx)

	ok, err := conn.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session is not responding")
	}
	fmt.Printf("ok: %s as %s\n", conn.DriverName(), conn.Owner())
	return nil
}

func addPingCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &pingCommand{g: g}
	app.Command("ping", "Connect and ping the database.").Action(cmd.run)
}

// describeCommand resolves a name through synonyms.
type describeCommand struct {
	g    *globalFlags
	name *string
}

func (cmd *describeCommand) run(c *kingpin.ParseContext) error {
	ctx := context.Background()
	conn := cmd.g.open(ctx)
	defer conn.Logoff(ctx)

	owner, table, err := conn.Describe(ctx, *cmd.name)
	if err != nil {
		return err
	}
	fmt.Printf("%s.%s\n", owner, table)
	return nil
}

func addDescribeCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &describeCommand{g: g}
	describe := app.Command("describe", "Resolve a table, view or synonym to its owner and name.").Action(cmd.run)
	cmd.name = describe.Arg("name", "Possibly qualified object name.").Required().String()
}

// execCommand runs one statement with positional string binds.
type execCommand struct {
	g     *globalFlags
	sql   *string
	binds *[]string
}

func (cmd *execCommand) run(c *kingpin.ParseContext) error {
	ctx := context.Background()
	conn := cmd.g.open(ctx)
	defer conn.Logoff(ctx)

	res, err := conn.Exec(ctx, *cmd.sql, bindArgs(*cmd.binds)...)
	if err != nil {
		return err
	}
	fmt.Printf("rows affected: %d\n", res.RowsAffected)
	if res.HasReturning {
		fmt.Printf("returning id: %d\n", res.ReturningID)
	}
	return nil
}

func addExecCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &execCommand{g: g}
	exec := app.Command("exec", "Run a statement.").Action(cmd.run)
	cmd.sql = exec.Arg("sql", "Statement text, binds as :1, :2...").Required().String()
	cmd.binds = exec.Arg("binds", "Bind values, in order.").Strings()
}

// queryCommand prints the rows of a query as a table.
type queryCommand struct {
	g     *globalFlags
	sql   *string
	binds *[]string
}

func (cmd *queryCommand) run(c *kingpin.ParseContext) error {
	ctx := context.Background()
	conn := cmd.g.open(ctx)
	defer conn.Logoff(ctx)

	rs, err := conn.Select(ctx, *cmd.sql, bindArgs(*cmd.binds)...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	names := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		names[i] = col.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, 0, row.Len())
		for _, v := range row.Values() {
			cells = append(cells, v.String())
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func addQueryCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &queryCommand{g: g}
	query := app.Command("query", "Run a query and print its rows.").Action(cmd.run)
	cmd.sql = query.Arg("sql", "Query text, binds as :1, :2...").Required().String()
	cmd.binds = query.Arg("binds", "Bind values, in order.").Strings()
}

// lobCommand writes a file into a LOB column of one existing row.
type lobCommand struct {
	g      *globalFlags
	table  *string
	column *string
	key    *map[string]string
	file   *string
	binary *bool
}

func (cmd *lobCommand) run(c *kingpin.ParseContext) error {
	data, err := os.ReadFile(*cmd.file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *cmd.file, err)
	}
	value := quoting.CLOB(string(data))
	if *cmd.binary {
		value = quoting.Binary(data)
	}

	key := make(map[string]interface{}, len(*cmd.key))
	for k, v := range *cmd.key {
		key[k] = v
	}

	ctx := context.Background()
	conn := cmd.g.open(ctx)
	defer conn.Logoff(ctx)

	coord := oracle.NewLOBCoordinator(conn)
	err = coord.Persist(ctx, oracle.LOBWrite{
		Table:   *cmd.table,
		Key:     key,
		Columns: map[string]quoting.Value{*cmd.column: value},
	})
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes\n", len(data))
	return nil
}

func addLOBCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &lobCommand{g: g}
	lob := app.Command("put-lob", "Store a file in a CLOB or BLOB column.").Action(cmd.run)
	cmd.table = lob.Arg("table", "Table holding the row.").Required().String()
	cmd.column = lob.Arg("column", "LOB column to write.").Required().String()
	cmd.file = lob.Arg("file", "File to store.").Required().ExistingFile()
	cmd.key = lob.Flag("key", "Primary key column=value, repeatable.").Required().StringMap()
	cmd.binary = lob.Flag("binary", "Store as BLOB instead of CLOB.").Bool()
}

// bindArgs passes command line binds as strings; Oracle converts them
// to the column types.
func bindArgs(binds []string) []interface{} {
	args := make([]interface{}, len(binds))
	for i, b := range binds {
		args[i] = b
	}
	return args
}
