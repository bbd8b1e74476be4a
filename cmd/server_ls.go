// Copyright © 2017 yuuki0xff <yuuki0xff@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuuki0xff/frametrace/config"
)

// serverLsCmd represents the ls command
var serverLsCmd = &cobra.Command{
	Use:                   "ls",
	DisableFlagsInUseLine: true,
	Short:                 "Show tracing servers",
	Args:                  cobra.NoArgs,
	RunE:                  wrap(runServerLs),
}

func runServerLs(opt *handlerOpt) error {
	stdout := opt.Stdout

	if len(opt.Conf.Servers.ApiServer) == 0 {
		fmt.Fprintln(stdout, "Tracing server is not running")
		return nil
	}

	ids := make([]config.ServerID, 0, len(opt.Conf.Servers.ApiServer))
	for id := range opt.Conf.Servers.ApiServer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tbl := defaultTable(stdout)
	tbl.SetHeader([]string{"ID", "Address", "PID", "Started"})
	for _, id := range ids {
		s := opt.Conf.Servers.ApiServer[id]
		tbl.Append([]string{
			fmt.Sprint(id),
			s.Addr,
			fmt.Sprint(s.PID),
			s.Started.Format(time.RFC3339),
		})
	}
	tbl.Render()
	return nil
}

func init() {
	serverCmd.AddCommand(serverLsCmd)
}
