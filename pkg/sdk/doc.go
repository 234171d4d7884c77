// Package searchgate embeds the searchgate front door in a Go program.
//
// The client wires the query parser, the access rate governor and the search
// session coordinator in-process around a caller-supplied Retriever, the same
// way the searchgate server wires them around its HTTP backend client.
//
//	client, _ := searchgate.New(searchgate.RetrieverFunc(
//	    func(ctx context.Context, q searchgate.Query) (*searchgate.Results, error) {
//	        return myIndex.Search(ctx, q.Include, q.Exclude, q.MaxResults)
//	    }),
//	    searchgate.WithRateLimits(searchgate.Limits{OneMinute: 60}),
//	)
//	defer client.Close()
//
//	page, _ := client.Search(ctx, searchgate.SearchRequest{Query: "berlin site:example.org"},
//	    searchgate.Caller{Addr: "203.0.113.5"})
//	if page.Blocked {
//	    // page.BlockReason is one of the block reason codes
//	}
//	page, _ = client.Resort(ctx, page.SessionID, searchgate.OrderDate, caller)
package searchgate
