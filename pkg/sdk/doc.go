// Package solace embeds the solace retrieval core in another Go program.
//
// The client talks to the same Valkey or Redis chunk index the solace API
// server uses, so documents indexed with solace-index are immediately
// retrievable:
//
//	client, err := solace.New(ctx,
//	    solace.WithValkey("localhost:6379", ""),
//	    solace.WithEmbedder(myEmbedder),
//	    solace.WithVectorDimensions(384),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	docs, err := client.Retrieve(ctx, "I keep worrying about everything")
//	for _, d := range docs {
//	    fmt.Printf("%.2f %s: %s\n", d.Similarity, d.Topic, d.Content)
//	}
//
// Retrieval infers a topic from the query, over-fetches candidates, boosts
// candidates whose topic matches and keeps the best TopK. Results are
// memoized per normalized query.
package solace
