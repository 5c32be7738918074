package debug

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/hitzhangjie/ldb/pkg/debugger"
)

type helpCmd struct {
	verb string
}

func (helpCmd) isCommand() {}

func parseHelp(args []string) (command, error) {
	switch len(args) {
	case 0:
		return helpCmd{}, nil
	case 1:
		return helpCmd{verb: strings.ToLower(args[0])}, nil
	}
	return nil, errUsage
}

func (c *Commands) help(l *debugger.Loop, cmd helpCmd) error {
	out := l.Output()
	if cmd.verb == "" {
		fmt.Fprint(out, c.helpMessageByGroups())
		return nil
	}

	v, ok := c.byName[cmd.verb]
	if !ok {
		return errInvalidCommand
	}
	fmt.Fprintf(out, "%s\n\nUsage:\n  %s\n\nAliases:\n  %s\n", v.short, v.usage, strings.Join(v.names, ", "))
	return nil
}

// helpMessageByGroups 将各个命令按照分组归类，再展示帮助信息
func (c *Commands) helpMessageByGroups() string {
	// key:group, val:sorted commands in same group
	groups := map[string][]string{}
	for _, v := range c.verbs {
		groupCmds := groups[v.group]
		groupCmds = append(groupCmds, fmt.Sprintf("  %-16s:%s", v.name(), v.short))
		sort.Strings(groupCmds)
		groups[v.group] = groupCmds
	}

	// 按照分组名进行排序
	groupNames := []string{}
	for k := range groups {
		groupNames = append(groupNames, k)
	}
	sort.Strings(groupNames)

	buf := bytes.Buffer{}
	for _, groupName := range groupNames {
		group := strings.Split(groupName, cmdGroupDelimiter)[1]
		buf.WriteString(fmt.Sprintf("- [%s]\n", group))

		for _, cmd := range groups[groupName] {
			buf.WriteString(fmt.Sprintf("%s\n", cmd))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
