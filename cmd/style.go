package main

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

type startupInfo struct {
	URLs      []string
	NodeID    string
	PublicKey string
	Blocks    int
	DataDir   string
	RedisAddr string
	Legacy    bool
}

func printBanner() {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("News", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("Ledger", pterm.FgRed.ToStyle()),
	).Render()
}

func printStartup(info startupInfo) {
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{{
		{Data: nodePanel(info)},
		{Data: storagePanel(info)},
	}}).Render()
	for _, u := range info.URLs {
		pterm.Info.Printfln("Listening on %s", pterm.LightCyan(u))
	}
}

func nodePanel(info startupInfo) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	key := info.PublicKey
	if len(key) > 16 {
		key = key[:16] + "..."
	}
	return pbox.WithTitle(pterm.LightYellow("|NODE|")).WithTitleTopCenter().
		Sprintf("ID: %s\nPublic key: %s", info.NodeID, key)
}

func storagePanel(info startupInfo) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	var lines []string
	if info.DataDir == "" {
		lines = append(lines, "Chain: "+pterm.LightRed("in memory"))
	} else {
		lines = append(lines, "Chain: "+info.DataDir)
	}
	lines = append(lines, "Blocks: "+strconv.Itoa(info.Blocks))
	if info.RedisAddr == "" {
		lines = append(lines, "Events: "+pterm.LightRed("disabled"))
	} else {
		lines = append(lines, "Events: redis://"+info.RedisAddr)
	}
	lookup := pterm.LightGreen("strict")
	if info.Legacy {
		lookup = pterm.LightYellow("legacy")
	}
	lines = append(lines, "Lookup: "+lookup)
	lines = append(lines, "Analyzer: "+pterm.LightYellow("fallback (Unsure)"))
	return pbox.WithTitle(pterm.LightGreen("|LEDGER|")).WithTitleTopCenter().Sprint(strings.Join(lines, "\n"))
}
