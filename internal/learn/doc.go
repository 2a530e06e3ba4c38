// Package learn holds the model-fitting pieces the feature search scores
// candidate datasets with: ordinal encoding, CART trees grown as a bagged
// random forest, shuffled k-fold splitting and the fold scorers.
//
// Trees follow Louppe, G. (2014) "Understanding Random Forests: From Theory
// to Practice", chapter 3: gini impurity for classification, variance for
// regression, and random feature sampling at each split.
package learn
