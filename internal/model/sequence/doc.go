// Package sequence implements the three sequence classifiers. Each reads the
// vocabulary's unigram id encoding of a document, embeds it, reduces it to a
// fixed-width vector with an architecture-specific encoder, and classifies
// that vector with a softmax layer:
//
//	bag  mean of the token embeddings
//	cnn  width-k convolution with ReLU and max pooling over positions
//	rnn  Elman recurrence with tanh, final hidden state
//
// Training is per-example SGD with L2 weight decay, optional gradient norm
// clipping, and early stopping that restores the best epoch's weights.
package sequence
