// Package reviewclf rates free-text lecture reviews on a 1..5 star scale
// and derives a negative/neutral/positive sentiment from the rating.
//
// Quick start:
//
//	c, err := reviewclf.New(reviewclf.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	p, _ := c.Predict("과제나 팀플이 없어서 좋음")
//	fmt.Println(p.Rating, p.Sentiment, p.Sentiment.Korean()) // 5 positive 긍정
//
// The model directory must hold the artifacts written by `reviewclf train`:
// lecture_model.safetensors and tokenizer.json. A Classifier is immutable
// after New and safe for concurrent use. Create once, reuse across
// requests.
package reviewclf
