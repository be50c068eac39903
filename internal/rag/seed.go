package rag

// seedDocument is a built-in study text loaded when the knowledge store is
// empty, so a fresh install can answer questions before anything is ingested.
type seedDocument struct {
	Name    string
	Topic   string
	Content string
}

var seedDocuments = []seedDocument{
	{
		Name:  "python_basics",
		Topic: "python",
		Content: `Python is a high-level, interpreted programming language known for its
readable syntax. Variables in Python are dynamically typed, meaning you do not
declare a type; the interpreter infers it at runtime. Common built-in types
include integers, floats, strings, lists, tuples, dictionaries and sets.

Functions are defined with the def keyword and can accept positional and
keyword arguments. Indentation defines code blocks instead of braces, so
consistent whitespace matters. A for loop iterates over any iterable, and the
range function produces a sequence of numbers for counted loops.

List comprehensions offer a compact way to build lists, for example
squares = [x * x for x in range(10)]. Exceptions are handled with try and
except blocks, and the with statement manages resources such as open files,
closing them automatically when the block exits.`,
	},
	{
		Name:  "machine_learning",
		Topic: "machine_learning",
		Content: `Machine learning is the study of algorithms that improve automatically
through experience. In supervised learning the model trains on labeled
examples, learning a mapping from inputs to outputs; classification predicts
discrete labels while regression predicts continuous values. In unsupervised
learning the model finds structure in unlabeled data, for example clustering
similar items together.

Training data is typically split into a training set and a test set so that
model performance is measured on examples it has never seen. Overfitting
happens when a model memorizes the training data instead of generalizing;
techniques such as regularization, cross-validation and early stopping help
prevent it.

A neural network is composed of layers of connected units. Each unit computes
a weighted sum of its inputs followed by a nonlinear activation function.
Training adjusts the weights with gradient descent, using backpropagation to
compute how much each weight contributed to the error.`,
	},
	{
		Name:  "data_structures",
		Topic: "data_structures",
		Content: `A data structure organizes data so that it can be used efficiently.
An array stores elements contiguously and offers constant-time access by
index. A linked list stores elements in nodes that point to the next node,
making insertion and removal cheap but indexed access linear.

A stack is a last-in-first-out collection with push and pop operations, used
for function call tracking and undo features. A queue is first-in-first-out,
used for task scheduling and breadth-first search.

A hash table maps keys to values by hashing the key to a bucket index, giving
average constant-time lookup, insertion and deletion. Collisions are handled
with chaining or open addressing. A binary search tree keeps keys in sorted
order, supporting ordered traversal and logarithmic search when balanced.
Graphs model relationships between entities as vertices connected by edges
and are traversed with depth-first or breadth-first search.`,
	},
}
