// ABOUTME: Client MCP tool handlers
// ABOUTME: Implements add_client, find_clients, and update_client tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

type ClientHandlers struct {
	gw store.Gateway
}

func NewClientHandlers(gw store.Gateway) *ClientHandlers {
	return &ClientHandlers{gw: gw}
}

type AddClientInput struct {
	Name    string   `json:"name" jsonschema:"Client name (required)"`
	Email   string   `json:"email,omitempty" jsonschema:"Email address"`
	Phone   string   `json:"phone,omitempty" jsonschema:"Phone number"`
	Company string   `json:"company,omitempty" jsonschema:"Company name"`
	Status  string   `json:"status,omitempty" jsonschema:"Status: lead, prospect, customer, inactive (default prospect)"`
	Value   float64  `json:"value,omitempty" jsonschema:"Estimated account value in dollars"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
	Notes   string   `json:"notes,omitempty" jsonschema:"Notes about the client"`
	Source  string   `json:"source,omitempty" jsonschema:"Where the client came from"`
}

func (h *ClientHandlers) AddClient(ctx context.Context, request *mcp.CallToolRequest, input AddClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	status := input.Status
	if status == "" {
		status = models.ClientStatusProspect
	}

	client, err := createEntity(ctx, h.gw, store.TableClients, models.Client{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Status:  status,
		Value:   input.Value,
		Tags:    input.Tags,
		Notes:   input.Notes,
		Source:  input.Source,
	})
	if err != nil {
		return nil, ClientOutput{}, err
	}
	return nil, clientToOutput(client), nil
}

type FindClientsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Search by name, email, or company"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindClientsOutput struct {
	Clients []ClientOutput `json:"clients"`
	Count   int            `json:"count"`
}

func (h *ClientHandlers) FindClients(ctx context.Context, request *mcp.CallToolRequest, input FindClientsInput) (*mcp.CallToolResult, FindClientsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	clients, err := listEntities[models.Client](ctx, h.gw, store.TableClients)
	if err != nil {
		return nil, FindClientsOutput{}, err
	}

	out := FindClientsOutput{Clients: []ClientOutput{}}
	for _, c := range clients {
		if input.Status != "" && c.Status != input.Status {
			continue
		}
		if !matches(input.Query, c.Name, c.Email, c.Company) {
			continue
		}
		out.Clients = append(out.Clients, clientToOutput(c))
		if len(out.Clients) == limit {
			break
		}
	}
	out.Count = len(out.Clients)
	return nil, out, nil
}

type UpdateClientInput struct {
	ID          string   `json:"id" jsonschema:"Client ID (required)"`
	Name        string   `json:"name,omitempty" jsonschema:"Updated name"`
	Email       string   `json:"email,omitempty" jsonschema:"Updated email"`
	Phone       string   `json:"phone,omitempty" jsonschema:"Updated phone"`
	Company     string   `json:"company,omitempty" jsonschema:"Updated company"`
	Status      string   `json:"status,omitempty" jsonschema:"Updated status"`
	Value       *float64 `json:"value,omitempty" jsonschema:"Updated account value"`
	Notes       string   `json:"notes,omitempty" jsonschema:"Replacement notes"`
	Tags        []string `json:"tags,omitempty" jsonschema:"Replacement tags"`
	LastContact string   `json:"last_contact,omitempty" jsonschema:"Last contact time in ISO 8601 format"`
}

func (h *ClientHandlers) UpdateClient(ctx context.Context, request *mcp.CallToolRequest, input UpdateClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	current, err := getEntity[models.Client](ctx, h.gw, store.TableClients, input.ID)
	if err != nil {
		return nil, ClientOutput{}, err
	}

	fields := store.Row{}
	for key, value := range map[string]string{
		"name":    input.Name,
		"email":   input.Email,
		"phone":   input.Phone,
		"company": input.Company,
		"status":  input.Status,
		"notes":   input.Notes,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	if input.Value != nil {
		fields["value"] = *input.Value
	}
	if input.Tags != nil {
		fields["tags"] = input.Tags
	}
	if lc, err := parseTime("last_contact", input.LastContact); err != nil {
		return nil, ClientOutput{}, err
	} else if lc != nil {
		fields["last_contact"] = lc.Format(time.RFC3339)
	}
	if len(fields) == 0 {
		return nil, ClientOutput{}, fmt.Errorf("no fields to update")
	}

	client, err := updateEntity(ctx, h.gw, store.TableClients, current, fields)
	if err != nil {
		return nil, ClientOutput{}, err
	}
	return nil, clientToOutput(client), nil
}
