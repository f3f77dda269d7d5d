package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/cmdflow"
	"github.com/meikuraledutech/cmdflow/editor"
	"github.com/meikuraledutech/cmdflow/httpstore"
	"github.com/meikuraledutech/cmdflow/postgres"
)

func main() {
	ctx := context.Background()

	// Talk to a running cmdflowd when CMDFLOW_URL is set, otherwise straight to postgres.
	var store cmdflow.Store
	if url := os.Getenv("CMDFLOW_URL"); url != "" {
		store = httpstore.New(url)
	} else {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			log.Fatal("neither CMDFLOW_URL nor DATABASE_URL is set")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		store = pg
	}

	s := editor.New(store, "example-guild")
	g := s.Graph
	trigger := g.Trigger()

	// /warn <user> [reason]
	if err := g.UpdateNodeData(trigger.ID, map[string]any{
		"name":            "warn",
		"description":     "Warn a member, kicking repeat offenders",
		"cooldownSeconds": 10,
	}); err != nil {
		log.Fatalf("trigger: %v", err)
	}

	user := must(g.AddBlock("option.user", cmdflow.Position{X: 100, Y: 250}))
	must0(g.UpdateNodeData(user.ID, map[string]any{"name": "member", "description": "Who to warn", "required": true}))
	reason := must(g.AddBlock("option.string", cmdflow.Position{X: 100, Y: 350}))
	must0(g.UpdateNodeData(reason.ID, map[string]any{"name": "reason", "description": "Why"}))

	// Members holding the "warned" role get kicked; everyone else gets the role and a DM.
	check := must(g.AddBlock("condition.if_else", cmdflow.Position{X: 400, Y: 100}))
	must0(g.UpdateNodeData(check.ID, map[string]any{"operator": "has_role", "leftValue": "{member}", "rightValue": "warned"}))
	g.Connect(trigger.ID, check.ID, cmdflow.SocketOutput, cmdflow.SocketInput)

	kick := must(g.AddBlock("action.kick_member", cmdflow.Position{X: 700, Y: 50}))
	g.Connect(check.ID, kick.ID, cmdflow.SocketOutput, cmdflow.SocketInput)

	check, _ = g.Node(check.ID)
	elseNode, _ := g.Node(check.Connections[cmdflow.SocketElse][0])
	must0(g.UpdateNodeData(elseNode.ID, map[string]any{"actionKind": "add_role", "roleId": "warned", "label": "Mark warned"}))

	dm := must(g.AddBlock("action.send_message", cmdflow.Position{X: 900, Y: 200}))
	must0(g.UpdateNodeData(dm.ID, map[string]any{"content": "You have been warned: {reason}", "targetChannelMode": "dm"}))
	g.Connect(elseNode.ID, dm.ID, cmdflow.SocketOutput, cmdflow.SocketInput)

	if err := s.Save(ctx); err != nil {
		var verr *cmdflow.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Printf("  %s.%s: %s\n", p.NodeID, p.Field, p.Message)
			}
		}
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("saved /warn as %s\n", s.CommandID)

	// Reopen it as a fresh editor would.
	opened, err := editor.Open(ctx, store, "example-guild", s.CommandID)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	out, _ := json.MarshalIndent(cmdflow.Serialize(opened.Graph, opened.ServerID), "", "  ")
	fmt.Println(string(out))

	list, err := store.List(ctx, "example-guild")
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	for _, c := range list {
		fmt.Printf("/%s  %s  (%s)\n", c.Name, c.Description, c.ID)
	}

	if err := store.Delete(ctx, "example-guild", s.CommandID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("deleted")
}

func must(n cmdflow.Node, err error) cmdflow.Node {
	if err != nil {
		log.Fatal(err)
	}
	return n
}

func must0(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
