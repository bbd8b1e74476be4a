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
	"context"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuuki0xff/frametrace/tracer/reaper"
	"github.com/yuuki0xff/frametrace/tracer/render"
	"github.com/yuuki0xff/frametrace/tracer/restapi"
	"github.com/yuuki0xff/frametrace/tracer/tree"
)

// traceCmd represents the trace command
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Trace the next frame",
	Long: `Trace the next frame rendered by the server and print the result.

By default the command waits until the next frame was rendered and prints the
HTML document of all traces since the last clear. Resource kinds are:
  ` + strings.Join(kindNames(), ", "),
	Args: cobra.NoArgs,
	RunE: wrap(func(opt *handlerOpt) error {
		flags := opt.Cmd.Flags()
		nonblocking, _ := flags.GetBool("nonblocking")
		deletes, _ := flags.GetStringSlice("delete")
		table, _ := flags.GetBool("table")
		timeout, _ := flags.GetDuration("timeout")
		svgFile, _ := flags.GetString("svg")

		// 不正な名前はサーバに送る前に検出する。
		if _, err := reaper.ParseSet(strings.Join(deletes, ",")); err != nil {
			opt.ErrLog.Println(err)
			return errInvalidArgs
		}
		return runTrace(opt, restapi.TraceOptions{
			Nonblocking: nonblocking,
			Delete:      deletes,
		}, table, timeout, svgFile)
	}),
}

func runTrace(opt *handlerOpt, to restapi.TraceOptions, table bool, timeout time.Duration, svgFile string) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	api, cancel, err := opt.ApiWithCancel(ctx)
	if err != nil {
		opt.ErrLog.Println(err)
		return errGeneral
	}
	defer cancel()

	if table {
		traces, err := api.Traces(to)
		if err != nil {
			opt.ErrLog.Println(err)
			return errGeneral
		}
		printTraceTable(opt, traces)
	} else {
		doc, err := api.TraceNextFrame(to)
		if err != nil {
			opt.ErrLog.Println(err)
			return errGeneral
		}
		fmt.Fprint(opt.Stdout, doc)
	}

	if svgFile != "" {
		b, err := api.TraceSVG()
		if err != nil {
			opt.ErrLog.Println(err)
			return errGeneral
		}
		if err := ioutil.WriteFile(svgFile, b, 0644); err != nil {
			opt.ErrLog.Println(err)
			return errIo
		}
	}
	return nil
}

func printTraceTable(opt *handlerOpt, traces []render.Trace) {
	tbl := defaultTable(opt.Stdout)
	tbl.SetHeader([]string{"Frame", "Depth", "Kind", "Name", "Arguments", "Error"})
	for _, t := range traces {
		frame := fmt.Sprint(t.Frame)
		t.Tree.Walk(func(n tree.Node, depth int) {
			indent := strings.Repeat("  ", depth)
			switch n := n.(type) {
			case *tree.Label:
				tbl.Append([]string{frame, fmt.Sprint(depth), "label", indent + n.Text, "", ""})
			case *tree.Call:
				args := make([]string, len(n.Args))
				for i, a := range n.Args {
					if a.Name == "" {
						args[i] = a.Value
					} else {
						args[i] = a.Name + " = " + a.Value
					}
				}
				tbl.Append([]string{frame, fmt.Sprint(depth), "call", indent + n.Function, strings.Join(args, ", "), n.Error})
			}
		})
	}
	tbl.Render()
}

func kindNames() []string {
	kinds := reaper.AllKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = fmt.Sprintf("%q", k.String())
	}
	return names
}

func init() {
	RootCmd.AddCommand(traceCmd)

	traceCmd.Flags().BoolP("nonblocking", "n", false, "Do not wait for the next frame. Print the traces captured so far")
	traceCmd.Flags().StringSliceP("delete", "d", nil, "Resource kinds to delete at the end of the traced frame")
	traceCmd.Flags().BoolP("table", "t", false, "Print the traces as a table instead of HTML")
	traceCmd.Flags().Duration("timeout", 0, "Give up waiting after the duration (0 means no timeout)")
	traceCmd.Flags().String("svg", "", "Write the overview image of the latest trace to the file")
}
