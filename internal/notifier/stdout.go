package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

// StdoutDeliverer prints notifications, for terminals without a tray.
type StdoutDeliverer struct {
	w io.Writer
}

var _ Deliverer = (*StdoutDeliverer)(nil)

func NewStdoutDeliverer(w io.Writer) *StdoutDeliverer {
	return &StdoutDeliverer{w: w}
}

func (s *StdoutDeliverer) Name() string { return constants.DeliveryStdout }

func (s *StdoutDeliverer) Deliver(_ context.Context, n models.Notification) error {
	line := fmt.Sprintf("[%s] %s", n.FireAt.Format("15:04:05"), titleStyle.Render(n.Title))
	if n.Subtitle != "" {
		line += " " + n.Subtitle
	}
	_, err := fmt.Fprintf(s.w, "%s\n  %s\a\n", line, n.Body)
	return err
}
