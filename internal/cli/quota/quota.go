package quota

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/stepalarm/internal/cli"
	quotapkg "github.com/julianstephens/stepalarm/internal/quota"
)

type QuotaShowCmd struct{}

func (c *QuotaShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	q, err := ctx.Quota().Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read quota: %w", err)
	}

	ctx.Printf("Emergency stops: %d of %d left this month\n", q.Remaining, q.MaxPerMonth)
	// Lowering the max leaves this month's remaining count above it.
	used := max(q.MaxPerMonth-q.Remaining, 0)
	ctx.Printf("  %s%s\n", strings.Repeat("● ", q.Remaining), strings.Repeat("○ ", used))
	ctx.Printf("  Last reset: %s\n", q.LastResetString())
	return nil
}

type QuotaResetCmd struct {
	Yes bool `short:"y" help:"Skip the confirmation prompt."`
}

func (c *QuotaResetCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm("Reset emergency stops?", "This restores the full monthly allowance.")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	t := ctx.Quota()
	if err := t.Reset(); err != nil {
		return fmt.Errorf("failed to reset quota: %w", err)
	}
	remaining, err := t.Remaining()
	if err != nil {
		return err
	}
	ctx.Printf("✓ Emergency stops reset to %d\n", remaining)
	return nil
}

type QuotaSetMaxCmd struct {
	Max int `arg:"" help:"Emergency stops allowed per month (1-10)."`
}

func (c *QuotaSetMaxCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	t := ctx.Quota()
	if err := t.SetMaxPerMonth(c.Max); err != nil {
		if errors.Is(err, quotapkg.ErrInvalidMax) {
			return err
		}
		return fmt.Errorf("failed to update quota: %w", err)
	}
	q, err := t.Snapshot()
	if err != nil {
		return err
	}
	ctx.Printf("✓ Emergency stops per month set to %d (%d left)\n", q.MaxPerMonth, q.Remaining)
	return nil
}
