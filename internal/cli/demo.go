package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcptap/mcptap/internal/track"
)

// demoStore is the in-memory backing for the demo todo tools.
type demoStore struct {
	mu     sync.Mutex
	nextID int
	todos  map[int]*todoItem
}

type todoItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type addTodoInput struct {
	Text string `json:"text" jsonschema:"the todo text"`
}

type addTodoOutput struct {
	Todo todoItem `json:"todo"`
}

type listTodosInput struct{}

type listTodosOutput struct {
	Todos []todoItem `json:"todos"`
}

type completeTodoInput struct {
	ID int `json:"id" jsonschema:"id of the todo to mark done"`
}

type completeTodoOutput struct {
	Todo todoItem `json:"todo"`
}

func registerDemoTools(tap *track.Tap, server *mcp.Server) {
	store := &demoStore{nextID: 1, todos: make(map[int]*todoItem)}

	track.AddTool(tap, server, &mcp.Tool{
		Name:        "add_todo",
		Description: "Add a new todo item",
	}, store.addTodo)

	track.AddTool(tap, server, &mcp.Tool{
		Name:        "list_todos",
		Description: "List all todo items",
	}, store.listTodos)

	track.AddTool(tap, server, &mcp.Tool{
		Name:        "complete_todo",
		Description: "Mark a todo item as done",
	}, store.completeTodo)
}

func (s *demoStore) addTodo(ctx context.Context, req *mcp.CallToolRequest, in addTodoInput) (*mcp.CallToolResult, addTodoOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &todoItem{ID: s.nextID, Text: in.Text}
	s.todos[item.ID] = item
	s.nextID++
	return nil, addTodoOutput{Todo: *item}, nil
}

func (s *demoStore) listTodos(ctx context.Context, req *mcp.CallToolRequest, in listTodosInput) (*mcp.CallToolResult, listTodosOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := listTodosOutput{Todos: make([]todoItem, 0, len(s.todos))}
	for id := 1; id < s.nextID; id++ {
		if item, ok := s.todos[id]; ok {
			out.Todos = append(out.Todos, *item)
		}
	}
	return nil, out, nil
}

func (s *demoStore) completeTodo(ctx context.Context, req *mcp.CallToolRequest, in completeTodoInput) (*mcp.CallToolResult, completeTodoOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.todos[in.ID]
	if !ok {
		return nil, completeTodoOutput{}, fmt.Errorf("no todo with id %d", in.ID)
	}
	item.Done = true
	return nil, completeTodoOutput{Todo: *item}, nil
}
