// ABOUTME: GraphViz rendering of the lead funnel and client accounts
// ABOUTME: Works from an in-memory snapshot so it never touches the backend
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
)

// GraphGenerator renders DOT graphs from a snapshot.
type GraphGenerator struct {
	snap feed.Snapshot
}

func NewGraphGenerator(snap feed.Snapshot) *GraphGenerator {
	return &GraphGenerator{snap: snap}
}

var funnelStages = []string{
	models.LeadStatusNew,
	models.LeadStatusContacted,
	models.LeadStatusQualified,
	models.LeadStatusConverted,
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// render owns the graphviz lifecycle; build populates the graph.
func render(ctx context.Context, label string, build func(graph *cgraph.Graph) error) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel(label)
	graph.SetRankDir(cgraph.LRRank)

	if err := build(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

// GenerateFunnelGraph draws lead counts per status with lost branching off every open stage.
func (g *GraphGenerator) GenerateFunnelGraph(ctx context.Context) (string, error) {
	counts := make(map[string]int)
	values := make(map[string]float64)
	for _, l := range g.snap.Leads {
		counts[l.Status]++
		values[l.Status] += l.Value
	}

	return render(ctx, "Lead Funnel", func(graph *cgraph.Graph) error {
		nodes := make(map[string]*cgraph.Node)
		for _, status := range append(append([]string(nil), funnelStages...), models.LeadStatusLost) {
			node, err := graph.CreateNodeByName(status)
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%d leads\n%s", status, counts[status], feed.FormatMoney(values[status])))
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor(stageColor(status))
			nodes[status] = node
		}

		for i := 0; i < len(funnelStages)-1; i++ {
			if _, err := graph.CreateEdgeByName(funnelStages[i]+"_next", nodes[funnelStages[i]], nodes[funnelStages[i+1]]); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
		for _, status := range funnelStages[:len(funnelStages)-1] {
			edge, err := graph.CreateEdgeByName(status+"_lost", nodes[status], nodes[models.LeadStatusLost])
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
		return nil
	})
}

func stageColor(status string) string {
	switch status {
	case models.LeadStatusConverted:
		return "lightgreen"
	case models.LeadStatusLost:
		return "lightpink"
	case models.LeadStatusQualified:
		return "lightyellow"
	default:
		return "lightblue"
	}
}

// GenerateAccountGraph draws one client with its opportunities, tasks, activities,
// and the lead it was converted from when an audit note links them.
func (g *GraphGenerator) GenerateAccountGraph(ctx context.Context, clientID string) (string, error) {
	var client *models.Client
	for i := range g.snap.Clients {
		if g.snap.Clients[i].ID == clientID {
			client = &g.snap.Clients[i]
			break
		}
	}
	if client == nil {
		return "", fmt.Errorf("client not found: %s", clientID)
	}

	leads := make(map[string]models.Lead, len(g.snap.Leads))
	for _, l := range g.snap.Leads {
		leads[l.ID] = l
	}

	return render(ctx, client.Name, func(graph *cgraph.Graph) error {
		root, err := graph.CreateNodeByName("client_" + short(client.ID))
		if err != nil {
			return fmt.Errorf("failed to create client node: %w", err)
		}
		root.SetLabel(fmt.Sprintf("%s\n%s\n(%s)", client.Name, client.Company, client.Status))
		root.SetShape("box")
		root.SetStyle("filled")
		root.SetFillColor("lightblue")

		attach := func(name, label, shape, edgeLabel string) error {
			node, err := graph.CreateNodeByName(name)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}
			node.SetLabel(label)
			node.SetShape(cgraph.Shape(shape))
			edge, err := graph.CreateEdgeByName(edgeLabel, root, node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel(edgeLabel)
			return nil
		}

		for _, o := range g.snap.Opportunities {
			if o.ClientID != client.ID {
				continue
			}
			label := fmt.Sprintf("%s\n%s\n(%s)", o.Title, feed.FormatMoney(o.Value), o.Stage)
			if err := attach("opp_"+short(o.ID), label, "diamond", "deal"); err != nil {
				return err
			}
		}

		for _, t := range g.snap.Tasks {
			if t.ClientID == nil || *t.ClientID != client.ID {
				continue
			}
			if err := attach("task_"+short(t.ID), fmt.Sprintf("%s\n(%s)", t.Title, t.Status), "note", "task"); err != nil {
				return err
			}
		}

		for _, a := range g.snap.Activities {
			if a.ClientID == nil || *a.ClientID != client.ID {
				continue
			}
			if a.LeadID != nil {
				if lead, ok := leads[*a.LeadID]; ok {
					if err := attach("lead_"+short(lead.ID), fmt.Sprintf("%s\n(lead, %s)", lead.Name, lead.Status), "ellipse", "converted from"); err != nil {
						return err
					}
					continue
				}
			}
			if err := attach("activity_"+short(a.ID), fmt.Sprintf("%s\n(%s)", a.Title, a.Type), "plaintext", a.Type); err != nil {
				return err
			}
		}
		return nil
	})
}

// GeneratePipelineGraph groups open and closed opportunities by stage.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	return render(ctx, "Opportunity Pipeline", func(graph *cgraph.Graph) error {
		stages := make(map[string]*cgraph.Node)
		for _, stage := range []string{
			models.StageProspecting,
			models.StageQualification,
			models.StageProposal,
			models.StageNegotiation,
			models.StageClosedWon,
			models.StageClosedLost,
		} {
			node, err := graph.CreateNodeByName("stage_" + stage)
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			node.SetLabel(stage)
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor("lightgray")
			stages[stage] = node
		}

		for _, o := range g.snap.Opportunities {
			parent, ok := stages[o.Stage]
			if !ok {
				continue
			}
			node, err := graph.CreateNodeByName("opp_" + short(o.ID))
			if err != nil {
				return fmt.Errorf("failed to create opportunity node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s", o.Title, feed.FormatMoney(o.Value)))
			node.SetShape("ellipse")
			if _, err := graph.CreateEdgeByName("in_stage", parent, node); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
		return nil
	})
}
