package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dropsum/internal/model"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	markStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Picker is a simple TUI for choosing which pending candidates get
// dispatched. All items start marked.
type Picker struct {
	items     []model.BookmarkItem
	marked    map[int]bool
	filter    textinput.Model
	filtering bool
	cursor    int
	confirmed bool
	cancelled bool
	notice    string
	width     int
	height    int
}

// New creates a new Picker over the pending candidates.
func New(items []model.BookmarkItem) Picker {
	marked := make(map[int]bool, len(items))
	for i := range items {
		marked[i] = true
	}

	filter := textinput.New()
	filter.Placeholder = "filter titles"
	filter.CharLimit = 64

	return Picker{
		items:  items,
		marked: marked,
		filter: filter,
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// visible returns the indexes of items passing the filter.
func (p Picker) visible() []int {
	query := strings.ToLower(p.filter.Value())
	var idx []int
	for i, item := range p.items {
		if query == "" || strings.Contains(strings.ToLower(item.Title), query) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		if p.filtering {
			switch msg.Type {
			case tea.KeyEsc:
				p.filtering = false
				p.filter.SetValue("")
				p.filter.Blur()
				return p, nil
			case tea.KeyEnter:
				p.filtering = false
				p.filter.Blur()
				p.cursor = 0
				return p, nil
			}
			var cmd tea.Cmd
			p.filter, cmd = p.filter.Update(msg)
			return p, cmd
		}

		visible := p.visible()

		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit

		case tea.KeyEnter:
			p.confirmed = true
			return p, tea.Quit

		case tea.KeySpace:
			if p.cursor < len(visible) {
				i := visible[p.cursor]
				p.marked[i] = !p.marked[i]
			}
			return p, nil

		case tea.KeyDown:
			if p.cursor < len(visible)-1 {
				p.cursor++
			}
			return p, nil

		case tea.KeyUp:
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil
		}

		if msg.Type == tea.KeyRunes {
			switch string(msg.Runes) {
			case "j":
				if p.cursor < len(visible)-1 {
					p.cursor++
				}
			case "k":
				if p.cursor > 0 {
					p.cursor--
				}
			case "a":
				allMarked := true
				for _, i := range visible {
					if !p.marked[i] {
						allMarked = false
						break
					}
				}
				for _, i := range visible {
					p.marked[i] = !allMarked
				}
			case "y":
				if p.cursor < len(visible) {
					url := p.items[visible[p.cursor]].Link
					if err := clipboard.WriteAll(url); err != nil {
						p.notice = "clipboard unavailable"
					} else {
						p.notice = "copied " + url
					}
				}
			case "/":
				p.filtering = true
				p.filter.Focus()
			case "q":
				p.cancelled = true
				return p, tea.Quit
			}
		}
	}

	return p, nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	visible := p.visible()
	b.WriteString(headerStyle.Render(
		fmt.Sprintf("Pending videos: %d shown, %d selected", len(visible), p.selectedCount())))
	b.WriteString("\n\n")

	if p.filtering {
		b.WriteString(p.filter.View())
		b.WriteString("\n\n")
	}

	for pos, i := range visible {
		item := p.items[i]

		cursor := "  "
		style := normalStyle
		if pos == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		mark := "[ ]"
		if p.marked[i] {
			mark = markStyle.Render("[x]")
		}

		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, mark, style.Render(item.Title)))
		b.WriteString(fmt.Sprintf("       %s\n", urlStyle.Render(item.Link)))
	}

	b.WriteString("\n")
	if p.notice != "" {
		b.WriteString(footerStyle.Render(p.notice))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("j/k: move  Space: toggle  a: all  y: yank URL  /: filter  Enter: run  q/Esc: cancel"))

	return b.String()
}

func (p Picker) selectedCount() int {
	n := 0
	for _, marked := range p.marked {
		if marked {
			n++
		}
	}
	return n
}

// Selected returns the chosen candidates, or nil if cancelled.
func (p Picker) Selected() []model.BookmarkItem {
	if p.cancelled || !p.confirmed {
		return nil
	}
	var out []model.BookmarkItem
	for i, item := range p.items {
		if p.marked[i] {
			out = append(out, item)
		}
	}
	return out
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
